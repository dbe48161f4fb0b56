package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// PlatformStore persists the singleton platform record.
type PlatformStore interface {
	// Create stores the platform record. Returns ErrAlreadyExists when the
	// platform has already been initialized.
	Create(ctx context.Context, p Platform) error
	Get(ctx context.Context) (Platform, error)
	Update(ctx context.Context, p Platform) error
}

// MarketStore persists market records keyed by market id.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, id uint64) (Market, error)
	Update(ctx context.Context, m Market) error
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PositionStore persists per-(market, user) positions.
type PositionStore interface {
	// Upsert inserts the position if absent, otherwise replaces it.
	Upsert(ctx context.Context, p Position) error
	Get(ctx context.Context, marketID uint64, user common.Address) (Position, error)
	ListByUser(ctx context.Context, user common.Address, opts ListOpts) ([]Position, error)
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Position, error)
}

// EventStore persists the append-only event log.
type EventStore interface {
	Append(ctx context.Context, e Event) error
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Event, error)
	// ListBefore returns events older than the cutoff, oldest first, for
	// archival runs.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Event, error)
	// DeleteBefore prunes events older than the cutoff and returns the count.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Clock supplies the current Unix timestamp. Operations read it once at entry
// so a single operation observes a single instant.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() int64

// Now implements Clock.
func (f ClockFunc) Now() int64 { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(func() int64 { return time.Now().Unix() })
}

// LockManager serializes operations on a shared record. Acquire returns an
// unlock function on success and ErrLockHeld when another holder owns the
// lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Atomic runs fn as one unit of work: every store and ledger write made
// through the context fn receives either commits together or is rolled back
// when fn returns an error. The error is returned unwrapped so sentinel
// checks still work.
type Atomic interface {
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}
