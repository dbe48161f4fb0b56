package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// RateLimiter implements domain.RateLimiter with a sliding window backed by
// Redis sorted sets and an atomic Lua script. The HTTP middleware keys it by
// client IP.
type RateLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:           c.Underlying(),
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow counts a request for the key and returns domain.ErrRateLimited when
// the window budget is exhausted.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) error {
	result, err := rl.slidingWindow.Run(
		ctx,
		rl.rdb,
		[]string{rateLimitKey(key)},
		time.Now().UnixMicro(),
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(result) < 2 {
		return fmt.Errorf("redis: rate limit %s: unexpected result length %d", key, len(result))
	}
	if result[0] != 1 {
		return domain.ErrRateLimited
	}
	return nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*RateLimiter)(nil)
