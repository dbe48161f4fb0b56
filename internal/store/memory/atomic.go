package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// Snapshotter is implemented by in-process adapters that can capture their
// current state and hand back a function restoring it.
type Snapshotter interface {
	Snapshot() func()
}

// Atomic implements domain.Atomic over the in-process adapters. Every
// participant is snapshotted before fn runs and restored when fn fails, so a
// half-applied operation leaves no trace. One mutex serializes units of work;
// reads outside a unit of work are unaffected.
type Atomic struct {
	mu    sync.Mutex
	parts []Snapshotter
}

// NewAtomic creates an Atomic over the given participants.
func NewAtomic(parts ...Snapshotter) *Atomic {
	return &Atomic{parts: parts}
}

func (a *Atomic) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	restores := make([]func(), len(a.parts))
	for i, p := range a.parts {
		restores[i] = p.Snapshot()
	}
	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

var _ domain.Atomic = (*Atomic)(nil)
