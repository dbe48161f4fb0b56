// Package memory holds in-process store implementations used by dev mode and
// tests. All stores are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// PlatformStore keeps the singleton platform record in memory.
type PlatformStore struct {
	mu  sync.RWMutex
	p   domain.Platform
	set bool
}

// NewPlatformStore creates an empty PlatformStore.
func NewPlatformStore() *PlatformStore { return &PlatformStore{} }

func (s *PlatformStore) Create(_ context.Context, p domain.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return domain.ErrAlreadyExists
	}
	s.p, s.set = p, true
	return nil
}

func (s *PlatformStore) Get(_ context.Context) (domain.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.Platform{}, domain.ErrNotFound
	}
	return s.p, nil
}

func (s *PlatformStore) Update(_ context.Context, p domain.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return domain.ErrNotFound
	}
	s.p = p
	return nil
}

// Snapshot captures the platform record for rollback.
func (s *PlatformStore) Snapshot() func() {
	s.mu.RLock()
	p, set := s.p, s.set
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.p, s.set = p, set
		s.mu.Unlock()
	}
}

// MarketStore keeps market records in memory keyed by id.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[uint64]domain.Market
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[uint64]domain.Market)}
}

func (s *MarketStore) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return nil
}

func (s *MarketStore) Get(_ context.Context, id uint64) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *MarketStore) Update(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m
	return nil
}

func (s *MarketStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, opts), nil
}

func (s *MarketStore) ListByStatus(_ context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, opts), nil
}

func (s *MarketStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}

// Snapshot captures the market map for rollback.
func (s *MarketStore) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[uint64]domain.Market, len(s.markets))
	for id, m := range s.markets {
		saved[id] = m
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.markets = saved
		s.mu.Unlock()
	}
}

type positionKey struct {
	marketID uint64
	user     common.Address
}

// PositionStore keeps per-(market, user) positions in memory.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[positionKey]domain.Position
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[positionKey]domain.Position)}
}

func (s *PositionStore) Upsert(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey{p.MarketID, p.User}] = p
	return nil
}

func (s *PositionStore) Get(_ context.Context, marketID uint64, user common.Address) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionKey{marketID, user}]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *PositionStore) ListByUser(_ context.Context, user common.Address, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Position
	for k, p := range s.positions {
		if k.user == user {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return page(out, opts), nil
}

func (s *PositionStore) ListByMarket(_ context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Position
	for k, p := range s.positions {
		if k.marketID == marketID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].User.Hex() < out[j].User.Hex()
	})
	return page(out, opts), nil
}

// Snapshot captures the position map for rollback.
func (s *PositionStore) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[positionKey]domain.Position, len(s.positions))
	for k, p := range s.positions {
		saved[k] = p
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.positions = saved
		s.mu.Unlock()
	}
}

// EventStore keeps the append-only event log in memory.
type EventStore struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore { return &EventStore{} }

func (s *EventStore) Append(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *EventStore) ListByMarket(_ context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.MarketID == marketID {
			out = append(out, e)
		}
	}
	return page(out, opts), nil
}

func (s *EventStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.CreatedAt.Before(cutoff) {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *EventStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

// LockManager serializes by key within a single process.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]bool
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]bool)}
}

func (l *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] {
		return nil, domain.ErrLockHeld
	}
	l.locks[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locks, key)
	}, nil
}

func page[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

var (
	_ domain.PlatformStore = (*PlatformStore)(nil)
	_ domain.MarketStore   = (*MarketStore)(nil)
	_ domain.PositionStore = (*PositionStore)(nil)
	_ domain.EventStore    = (*EventStore)(nil)
	_ domain.LockManager   = (*LockManager)(nil)
)
