package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// StaticSource serves prices set by hand, keyed by feed id. Dev mode uses it
// so oracle markets can resolve without network access.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]domain.PriceSnapshot
}

// NewStaticSource creates an empty StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{prices: make(map[string]domain.PriceSnapshot)}
}

// SetPrice stores a snapshot for the feed, stamped with the current time.
func (s *StaticSource) SetPrice(feedID string, price int64, conf uint64, expo int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[feedID] = domain.PriceSnapshot{
		FeedID:      feedID,
		Price:       price,
		Conf:        conf,
		Expo:        expo,
		PublishTime: time.Now().Unix(),
	}
}

// Latest returns the stored snapshot for the feed.
func (s *StaticSource) Latest(_ context.Context, feedID string) (domain.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.prices[feedID]
	if !ok {
		return domain.PriceSnapshot{}, domain.ErrInvalidOracle
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*StaticSource)(nil)
