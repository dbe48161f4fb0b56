package domain

import (
	"context"
	"io"
	"time"
)

// MarketCache is a read-through cache for market records. Implementations may
// expire entries at any time; the store is always authoritative.
type MarketCache interface {
	Get(ctx context.Context, id uint64) (Market, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, id uint64) error
}

// EventBus publishes committed events for off-process consumers (indexers,
// dashboards). Publishing is best-effort: a bus failure never rolls back the
// operation that produced the event.
type EventBus interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// RateLimiter enforces a sliding request budget per key.
type RateLimiter interface {
	// Allow reports whether the key may proceed under limit events per
	// window. It returns ErrRateLimited when the budget is exhausted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) error
}

// BlobWriter stores an object in cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
