package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/store/memory"
)

func TestBuyOutcome_WorkedExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	res, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), res.Fee)
	assert.Equal(t, uint64(82_638), res.TokensOut)

	m = f.market(m.ID)
	assert.Equal(t, uint64(417_362), m.YesAmount)
	assert.Equal(t, uint64(599_000), m.NoAmount)
	assert.Equal(t, uint64(1_099_000), m.TotalLiquidity)
	assert.Equal(t, uint64(100_000), m.Volume)

	vault, err := f.ledger.Balance(ctx, m.Vault)
	require.NoError(t, err)
	assert.Equal(t, m.TotalLiquidity, vault)

	treasury, err := f.ledger.Balance(ctx, domain.TreasurySeed(testCollateral))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), treasury)

	assert.Equal(t, uint64(900_000), f.collateralBalance(alice))

	pos, err := f.positions.Get(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(82_638), pos.YesTokens)
	assert.Equal(t, uint64(100_000), pos.TotalDeposited)

	p, err := f.platform.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), p.TotalVolume)
}

func TestBuyOutcome_ProductNonDecreasing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 5_000_000)

	product := func(m domain.Market) *uint256.Int {
		return new(uint256.Int).Mul(uint256.NewInt(m.YesAmount), uint256.NewInt(m.NoAmount))
	}
	before := product(f.market(m.ID))

	trades := []struct {
		amount  uint64
		outcome domain.Outcome
	}{
		{100_000, domain.Yes},
		{3_333, domain.No},
		{250_000, domain.No},
		{777, domain.Yes},
		{1_000_000, domain.Yes},
	}
	for _, tr := range trades {
		_, err := f.eng.BuyOutcome(ctx, alice, m.ID, tr.amount, tr.outcome, 0)
		require.NoError(t, err)
		after := product(f.market(m.ID))
		assert.True(t, after.Cmp(before) >= 0,
			"reserve product shrank: %s -> %s", before, after)
		before = after
	}
}

func TestBuyOutcome_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	_, err := f.eng.BuyOutcome(ctx, alice, m.ID, 0, domain.Yes, 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, err = f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 82_639)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	_, err = f.eng.BuyOutcome(ctx, alice, 404, 100_000, domain.Yes, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// At the lock boundary trading is closed.
	f.clock.now = m.LockTime
	_, err = f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	assert.ErrorIs(t, err, domain.ErrMarketLocked)
	f.clock.now = m.LockTime - 1
	_, err = f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	assert.NoError(t, err)
}

func TestBuyOutcome_CancelledMarket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)
	require.NoError(t, f.eng.CancelMarket(ctx, authority, m.ID))

	_, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestSellOutcome_RoundTripLossy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	buy, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)

	sell, err := f.eng.SellOutcome(ctx, alice, m.ID, buy.TokensOut, domain.Yes, 0)
	require.NoError(t, err)

	// Fees on both legs plus integer floors guarantee a strict loss.
	assert.Less(t, sell.CollateralOut, uint64(100_000))
	assert.Equal(t, uint64(900_000)+sell.CollateralOut, f.collateralBalance(alice))

	pos, err := f.positions.Get(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Zero(t, pos.YesTokens)
	assert.Equal(t, sell.CollateralOut, pos.TotalWithdrawn)

	balance, err := f.ledger.Balance(ctx, domain.UserTokenAccount(m.YesMint, alice))
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestSellOutcome_Accounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	buy, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)
	liquidityBefore := f.market(m.ID).TotalLiquidity
	volumeBefore := f.market(m.ID).Volume

	sell, err := f.eng.SellOutcome(ctx, alice, m.ID, buy.TokensOut, domain.Yes, 0)
	require.NoError(t, err)

	m = f.market(m.ID)
	gross := sell.CollateralOut + sell.Fee
	assert.Equal(t, liquidityBefore-sell.CollateralOut, m.TotalLiquidity)
	assert.Equal(t, volumeBefore+gross, m.Volume)

	// The sell fee is paid from the vault, so the vault sits below the
	// recorded liquidity by exactly the accumulated sell fees.
	vault, err := f.ledger.Balance(ctx, m.Vault)
	require.NoError(t, err)
	assert.Equal(t, m.TotalLiquidity-sell.Fee, vault)
}

func TestSellOutcome_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	_, err := f.eng.SellOutcome(ctx, alice, m.ID, 10, domain.Yes, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	buy, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)
	_, err = f.eng.SellOutcome(ctx, alice, m.ID, buy.TokensOut+1, domain.Yes, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Holding YES does not allow selling NO.
	_, err = f.eng.SellOutcome(ctx, alice, m.ID, 10, domain.No, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestSellOutcome_Slippage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	buy, err := f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.NoError(t, err)

	_, err = f.eng.SellOutcome(ctx, alice, m.ID, buy.TokensOut, domain.Yes, 100_000)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
}

// failingMarketStore rejects every Update, as a dropped connection would.
type failingMarketStore struct {
	domain.MarketStore
}

func (failingMarketStore) Update(context.Context, domain.Market) error {
	return errors.New("write: connection reset by peer")
}

func TestBuyOutcome_RollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	f.fund(alice, 1_000_000)

	// Same adapters, but the market write fails after the ledger moves.
	broken := New(Deps{
		Platform:       f.platform,
		Markets:        failingMarketStore{f.markets},
		Positions:      f.positions,
		Events:         f.events,
		Ledger:         f.ledger,
		Atomic:         memory.NewAtomic(f.platform, f.markets, f.positions, f.ledger),
		Clock:          f.clock,
		Locks:          f.locks,
		CollateralMint: testCollateral,
		Logger:         slog.New(slog.DiscardHandler),
	})

	_, err := broken.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	require.Error(t, err)

	// No partial effects: the caller's collateral, the vault, the claim
	// supply, and the stored market all read as before the call.
	assert.Equal(t, uint64(1_000_000), f.collateralBalance(alice))

	vault, err := f.ledger.Balance(ctx, m.Vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), vault)

	supply, err := f.ledger.Supply(ctx, m.YesMint)
	require.NoError(t, err)
	assert.Zero(t, supply)

	stored := f.market(m.ID)
	assert.Equal(t, uint64(500_000), stored.YesAmount)
	assert.Equal(t, uint64(500_000), stored.NoAmount)
	assert.Equal(t, uint64(1_000_000), stored.TotalLiquidity)

	p, err := f.platform.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, p.TotalVolume)

	_, err = f.positions.Get(ctx, m.ID, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The rolled-back state is still consistent enough to trade against.
	_, err = f.eng.BuyOutcome(ctx, alice, m.ID, 100_000, domain.Yes, 0)
	assert.NoError(t, err)
}
