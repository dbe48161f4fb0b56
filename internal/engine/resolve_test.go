package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/oracle"
)

const btcFeed = "btc-usd"

// oracleMarket creates a market resolving GTE against a $60,000 threshold in
// 6-decimal fixed point.
func (f *fixture) oracleMarket(op domain.ResolutionOperator) domain.Market {
	f.t.Helper()
	return f.createMarket(func(p *CreateMarketParams) {
		threshold := uint64(60_000_000_000)
		p.ResolutionValue = &threshold
		p.ResolutionOperator = op
		p.OracleFeed = btcFeed
		p.ResolutionSource = "pyth"
	})
}

// freshSnapshot is a $65,000 Pyth-style price with 8 decimals and a tight
// confidence interval, published at the fixture clock's current instant.
func (f *fixture) freshSnapshot() domain.PriceSnapshot {
	return domain.PriceSnapshot{
		FeedID:      btcFeed,
		Price:       6_500_000_000_000, // 65,000 * 10^8
		Conf:        1_000_000_000,     // $10
		Expo:        -8,
		PublishTime: f.clock.now,
	}
}

func TestResolveMarket_Manual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	hint := true

	// One second before expiry the market is not resolvable.
	f.clock.now = m.ExpiresAt - 1
	_, err := f.eng.ResolveMarket(ctx, authority, m.ID, &hint)
	assert.ErrorIs(t, err, domain.ErrMarketNotExpired)

	// At expiry, inside the grace window, only the authority may resolve.
	f.clock.now = m.ExpiresAt
	_, err = f.eng.ResolveMarket(ctx, alice, m.ID, &hint)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.eng.ResolveMarket(ctx, authority, m.ID, nil)
	assert.ErrorIs(t, err, domain.ErrOutcomeRequired)

	outcome, err := f.eng.ResolveMarket(ctx, authority, m.ID, &hint)
	require.NoError(t, err)
	assert.True(t, outcome)

	stored := f.market(m.ID)
	assert.Equal(t, domain.StatusResolved, stored.Status)
	require.NotNil(t, stored.Outcome)
	assert.Equal(t, domain.Yes, *stored.Outcome)
	require.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, f.clock.now, *stored.ResolvedAt)

	_, err = f.eng.ResolveMarket(ctx, authority, m.ID, &hint)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)
}

func TestResolveMarket_PermissionlessAfterGrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.createMarket(nil)
	hint := false

	// Last second of the grace window still rejects outsiders.
	f.clock.now = m.ExpiresAt + domain.ResolutionGracePeriod - 1
	_, err := f.eng.ResolveMarket(ctx, alice, m.ID, &hint)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	f.clock.now = m.ExpiresAt + domain.ResolutionGracePeriod
	outcome, err := f.eng.ResolveMarket(ctx, alice, m.ID, &hint)
	require.NoError(t, err)
	assert.False(t, outcome)
	require.NotNil(t, f.market(m.ID).Outcome)
	assert.Equal(t, domain.No, *f.market(m.ID).Outcome)
}

func TestResolveMarket_Oracle(t *testing.T) {
	tests := []struct {
		name string
		op   domain.ResolutionOperator
		want bool
	}{
		{"price above threshold gte", domain.OpGTE, true},
		{"price above threshold lte", domain.OpLTE, false},
		{"price not equal", domain.OpEQ, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.oracleMarket(tt.op)
			f.clock.now = m.ExpiresAt
			f.snapshot = f.freshSnapshot()

			outcome, err := f.eng.ResolveMarket(context.Background(), authority, m.ID, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestResolveMarket_OracleEquality(t *testing.T) {
	f := newFixture(t)
	m := f.oracleMarket(domain.OpEQ)
	f.clock.now = m.ExpiresAt
	f.snapshot = f.freshSnapshot()
	f.snapshot.Price = 6_000_000_000_000 // exactly 60,000 * 10^8

	outcome, err := f.eng.ResolveMarket(context.Background(), authority, m.ID, nil)
	require.NoError(t, err)
	assert.True(t, outcome)
}

func TestResolveMarket_OracleValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
		want   error
	}{
		{"stale price", func(f *fixture) {
			f.snapshot.PublishTime = f.clock.now - domain.OracleMaxStaleness - 1
		}, domain.ErrStalePriceData},
		{"boundary staleness accepted", func(f *fixture) {
			f.snapshot.PublishTime = f.clock.now - domain.OracleMaxStaleness
		}, nil},
		{"confidence too wide", func(f *fixture) {
			// 501 bps of the price, one past the 5% cap.
			f.snapshot.Conf = 501 * uint64(f.snapshot.Price) / 10_000
		}, domain.ErrPriceConfidenceTooWide},
		{"wrong feed", func(f *fixture) {
			f.snapshot.FeedID = "eth-usd"
		}, domain.ErrInvalidOracle},
		{"non-positive price", func(f *fixture) {
			f.snapshot.Price = 0
		}, domain.ErrInvalidOracle},
		{"source error", func(f *fixture) {
			f.priceErr = errors.New("hermes unavailable")
		}, domain.ErrInvalidOracle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.oracleMarket(domain.OpGTE)
			f.clock.now = m.ExpiresAt
			f.snapshot = f.freshSnapshot()
			tt.mutate(f)

			_, err := f.eng.ResolveMarket(context.Background(), authority, m.ID, nil)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			// A rejected oracle read leaves the market Active for retry.
			assert.Equal(t, domain.StatusActive, f.market(m.ID).Status)
		})
	}
}

// The hand-fed price source must carry an oracle market all the way through
// resolution, since that is the only feed available without network access.
func TestResolveMarket_StaticSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.oracleMarket(domain.OpGTE)

	static := oracle.NewStaticSource()
	eng := New(Deps{
		Platform:       f.platform,
		Markets:        f.markets,
		Positions:      f.positions,
		Events:         f.events,
		Ledger:         f.ledger,
		Prices:         static,
		Clock:          f.clock,
		Locks:          f.locks,
		CollateralMint: testCollateral,
		Logger:         slog.New(slog.DiscardHandler),
	})

	f.clock.now = m.ExpiresAt
	_, err := eng.ResolveMarket(ctx, authority, m.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidOracle)

	static.SetPrice(btcFeed, 6_500_000_000_000, 1_000_000_000, -8)

	outcome, err := eng.ResolveMarket(ctx, authority, m.ID, nil)
	require.NoError(t, err)
	assert.True(t, outcome)
	assert.Equal(t, domain.StatusResolved, f.market(m.ID).Status)
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  int64
		expo int32
		want uint64
	}{
		{"pyth eight decimals", 6_500_000_000_000, -8, 65_000_000_000},
		{"already six decimals", 60_000_000_000, -6, 60_000_000_000},
		{"integer price", 60_000, 0, 60_000_000_000},
		{"scale down floors", 1_234_567_891, -9, 1_234_567},
		{"deep negative expo floors to zero", 5, -30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePrice(tt.raw, tt.expo)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := normalizePrice(1_000_000, 15)
	assert.ErrorIs(t, err, domain.ErrMathOverflow)
}
