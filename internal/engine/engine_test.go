package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/ledger"
	"github.com/alanyoungcy/ghostodds/internal/store/memory"
)

const testCollateral = "usdc"

// baseTime is the fixture clock's starting instant.
const baseTime int64 = 1_700_000_000

var (
	authority = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

type testClock struct {
	now int64
}

func (c *testClock) Now() int64 { return c.now }

type fixture struct {
	t         *testing.T
	eng       *Engine
	ledger    *ledger.Ledger
	platform  *memory.PlatformStore
	markets   *memory.MarketStore
	positions *memory.PositionStore
	events    *memory.EventStore
	locks     *memory.LockManager
	clock     *testClock

	snapshot domain.PriceSnapshot
	priceErr error
}

// newFixture wires an engine against in-memory adapters with the platform
// initialized at a 1% fee.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:         t,
		ledger:    ledger.New(),
		platform:  memory.NewPlatformStore(),
		markets:   memory.NewMarketStore(),
		positions: memory.NewPositionStore(),
		events:    memory.NewEventStore(),
		locks:     memory.NewLockManager(),
		clock:     &testClock{now: baseTime},
	}

	ctx := context.Background()
	require.NoError(t, f.ledger.CreateMint(ctx, testCollateral, 6, "faucet"))

	f.eng = New(Deps{
		Platform:  f.platform,
		Markets:   f.markets,
		Positions: f.positions,
		Events:    f.events,
		Ledger:    f.ledger,
		Atomic:    memory.NewAtomic(f.platform, f.markets, f.positions, f.ledger),
		Prices: domain.PriceSourceFunc(func(context.Context, string) (domain.PriceSnapshot, error) {
			return f.snapshot, f.priceErr
		}),
		Clock:          f.clock,
		Locks:          f.locks,
		CollateralMint: testCollateral,
		Logger:         slog.New(slog.DiscardHandler),
	})

	f.fund(authority, 10_000_000)
	_, err := f.eng.InitializePlatform(ctx, authority, 100)
	require.NoError(t, err)
	return f
}

// fund credits collateral to a user's token account, creating it on first use.
func (f *fixture) fund(user common.Address, amount uint64) {
	f.t.Helper()
	ctx := context.Background()
	account := domain.UserTokenAccount(testCollateral, user)
	if err := f.ledger.CreateAccount(ctx, account, testCollateral, user.Hex()); err != nil {
		require.ErrorIs(f.t, err, domain.ErrAlreadyExists)
	}
	require.NoError(f.t, f.ledger.MintTo(ctx, testCollateral, account, amount))
}

func (f *fixture) collateralBalance(user common.Address) uint64 {
	f.t.Helper()
	balance, err := f.ledger.Balance(context.Background(), domain.UserTokenAccount(testCollateral, user))
	require.NoError(f.t, err)
	return balance
}

func (f *fixture) market(id uint64) domain.Market {
	f.t.Helper()
	m, err := f.markets.Get(context.Background(), id)
	require.NoError(f.t, err)
	return m
}

// createMarket makes a 1,000,000-collateral manual market expiring in two
// days, returning the stored record.
func (f *fixture) createMarket(mutate func(*CreateMarketParams)) domain.Market {
	f.t.Helper()
	params := CreateMarketParams{
		Question:         "Will BTC close above $60k on Friday?",
		Description:      "Resolves on the Friday daily close.",
		Category:         "crypto",
		ResolutionSource: "manual",
		ExpiresAt:        f.clock.now + 2*domain.MinMarketDuration,
		InitialLiquidity: 1_000_000,
	}
	if mutate != nil {
		mutate(&params)
	}
	m, err := f.eng.CreateMarket(context.Background(), authority, params)
	require.NoError(f.t, err)
	return m
}

func TestInitializePlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.platform.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, authority, p.Authority)
	assert.Equal(t, uint16(100), p.FeeBps)
	assert.Equal(t, domain.TreasurySeed(testCollateral), p.Treasury)
	assert.Zero(t, p.MarketCount)

	_, err = f.eng.InitializePlatform(ctx, authority, 100)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestInitializePlatform_FeeTooHigh(t *testing.T) {
	f := &fixture{
		t:        t,
		ledger:   ledger.New(),
		platform: memory.NewPlatformStore(),
	}
	ctx := context.Background()
	require.NoError(t, f.ledger.CreateMint(ctx, testCollateral, 6, "faucet"))
	eng := New(Deps{
		Platform:       f.platform,
		Ledger:         f.ledger,
		CollateralMint: testCollateral,
		Logger:         slog.New(slog.DiscardHandler),
	})

	_, err := eng.InitializePlatform(ctx, authority, domain.MaxFeeBps+1)
	assert.ErrorIs(t, err, domain.ErrFeeTooHigh)
}

func TestCreateMarket(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(nil)

	assert.Equal(t, uint64(0), m.ID)
	assert.Equal(t, uint64(500_000), m.YesAmount)
	assert.Equal(t, uint64(500_000), m.NoAmount)
	assert.Equal(t, uint64(1_000_000), m.TotalLiquidity)
	assert.Equal(t, m.ExpiresAt-domain.LockBeforeExpiry, m.LockTime)
	assert.Equal(t, domain.StatusActive, m.Status)
	assert.Equal(t, uint16(100), m.FeeBps)

	vault, err := f.ledger.Balance(context.Background(), m.Vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), vault)

	p, err := f.platform.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.MarketCount)

	next := f.createMarket(nil)
	assert.Equal(t, uint64(1), next.ID)
}

func TestCreateMarket_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := CreateMarketParams{
		Question:         "q",
		ExpiresAt:        f.clock.now + 2*domain.MinMarketDuration,
		InitialLiquidity: 1_000_000,
	}

	tests := []struct {
		name   string
		caller common.Address
		mutate func(*CreateMarketParams)
		want   error
	}{
		{"not authority", alice, nil, domain.ErrUnauthorized},
		{"question too long", authority, func(p *CreateMarketParams) {
			p.Question = string(make([]byte, domain.MaxQuestionLen+1))
		}, domain.ErrQuestionTooLong},
		{"expiry too soon", authority, func(p *CreateMarketParams) {
			p.ExpiresAt = f.clock.now + domain.MinMarketDuration - 1
		}, domain.ErrExpiryTooSoon},
		{"zero liquidity", authority, func(p *CreateMarketParams) {
			p.InitialLiquidity = 0
		}, domain.ErrZeroAmount},
		{"single unit liquidity", authority, func(p *CreateMarketParams) {
			p.InitialLiquidity = 1
		}, domain.ErrZeroAmount},
		{"oracle threshold without feed", authority, func(p *CreateMarketParams) {
			v := uint64(60_000_000_000)
			p.ResolutionValue = &v
		}, domain.ErrOracleRequired},
		{"bad operator", authority, func(p *CreateMarketParams) {
			p.ResolutionOperator = domain.ResolutionOperator(9)
		}, domain.ErrInvalidOperator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := base
			if tt.mutate != nil {
				tt.mutate(&params)
			}
			_, err := f.eng.CreateMarket(ctx, tt.caller, params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCancelMarket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	err := f.eng.CancelMarket(ctx, alice, m.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, f.eng.CancelMarket(ctx, authority, m.ID))
	assert.Equal(t, domain.StatusCancelled, f.market(m.ID).Status)

	err = f.eng.CancelMarket(ctx, authority, m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestCancelMarket_AfterResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	f.clock.now = m.ExpiresAt
	hint := true
	_, err := f.eng.ResolveMarket(ctx, authority, m.ID, &hint)
	require.NoError(t, err)

	err = f.eng.CancelMarket(ctx, authority, m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestLockHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	unlock, err := f.locks.Acquire(ctx, domain.MarketSeed(m.ID), 0)
	require.NoError(t, err)
	defer unlock()

	err = f.eng.CancelMarket(ctx, authority, m.ID)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestEventsAppended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)

	f.fund(alice, 1_000_000)
	_, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)

	events, err := f.events.ListByMarket(ctx, m.ID, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventMarketCreated, events[0].Type)
	assert.Equal(t, domain.EventOutcomePurchased, events[1].Type)
}
