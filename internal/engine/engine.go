// Package engine implements the market program: platform initialization,
// market lifecycle, AMM trading, oracle/manual resolution, and redemption.
// Every operation is atomic against the shared platform/market/position
// records; a per-market lock provides the single-writer guarantee and any
// error leaves no partial effect.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// lockTTL bounds how long a crashed operation can hold a market lock.
const lockTTL = 10 * time.Second

// Deps bundles the collaborators the engine consumes. Platform, Markets,
// Positions, Events, Ledger, and Clock are required. Prices is required only
// to resolve oracle markets. Locks, Bus, and Cache are optional: a nil lock
// manager skips locking (single-process dev mode) and a nil bus or cache
// disables that side channel.
type Deps struct {
	Platform  domain.PlatformStore
	Markets   domain.MarketStore
	Positions domain.PositionStore
	Events    domain.EventStore
	Ledger    domain.TokenLedger
	Prices    domain.PriceSource
	Clock     domain.Clock
	Locks     domain.LockManager
	Bus       domain.EventBus
	Cache     domain.MarketCache

	// Atomic runs each operation's ledger and store writes as one unit of
	// work. A nil Atomic applies writes directly, without rollback.
	Atomic domain.Atomic

	// CollateralMint is the ledger mint id of the collateral asset backing
	// every market (6 decimals).
	CollateralMint string

	Logger *slog.Logger
}

// Engine executes market operations. It holds no state of its own; all
// durable state lives behind the store and ledger interfaces.
type Engine struct {
	platform  domain.PlatformStore
	markets   domain.MarketStore
	positions domain.PositionStore
	events    domain.EventStore
	ledger    domain.TokenLedger
	prices    domain.PriceSource
	clock     domain.Clock
	locks     domain.LockManager
	bus       domain.EventBus
	cache     domain.MarketCache
	atomic    domain.Atomic

	collateralMint string
	logger         *slog.Logger
}

// New creates an Engine from its dependencies.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Engine{
		platform:       d.Platform,
		markets:        d.Markets,
		positions:      d.Positions,
		events:         d.Events,
		ledger:         d.Ledger,
		prices:         d.Prices,
		clock:          clock,
		locks:          d.Locks,
		bus:            d.Bus,
		cache:          d.Cache,
		atomic:         d.Atomic,
		collateralMint: d.CollateralMint,
		logger:         logger.With(slog.String("component", "engine")),
	}
}

// lockMarket acquires the per-market writer lock. Returns a release func.
func (e *Engine) lockMarket(ctx context.Context, marketID uint64) (func(), error) {
	if e.locks == nil {
		return func() {}, nil
	}
	unlock, err := e.locks.Acquire(ctx, domain.MarketSeed(marketID), lockTTL)
	if err != nil {
		return nil, fmt.Errorf("engine: lock market %d: %w", marketID, err)
	}
	return unlock, nil
}

// atomically runs fn as one unit of work so a failure midway through an
// operation's writes rolls back the writes that already landed.
func (e *Engine) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.atomic == nil {
		return fn(ctx)
	}
	return e.atomic.Atomically(ctx, fn)
}

// emit appends the event to the durable log and fans it out to the bus and
// cache. Log append failures are returned (the operation has already
// committed its state, so the caller logs rather than rolls back); bus and
// cache failures are best-effort.
func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	if err := e.events.Append(ctx, ev); err != nil {
		e.logger.ErrorContext(ctx, "event append failed",
			slog.String("type", string(ev.Type)),
			slog.Uint64("market_id", ev.MarketID),
			slog.String("error", err.Error()),
		)
	}
	if e.bus != nil {
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.logger.WarnContext(ctx, "event publish failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// refreshCache back-fills the market cache after a committed mutation.
func (e *Engine) refreshCache(ctx context.Context, m domain.Market) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, m); err != nil {
		e.logger.WarnContext(ctx, "market cache set failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

// addU64 is a checked 64-bit addition.
func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, domain.ErrMathOverflow
	}
	return a + b, nil
}

// subU64 is a checked 64-bit subtraction.
func subU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, domain.ErrMathOverflow
	}
	return a - b, nil
}
