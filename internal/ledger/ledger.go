// Package ledger provides an in-process implementation of the fungible-token
// primitive for dev mode and tests. Production deployments use the
// PostgreSQL-backed ledger in store/postgres instead.
package ledger

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

var errMintMismatch = errors.New("ledger: accounts hold different mints")

type mint struct {
	decimals  uint8
	authority string
	supply    uint64
}

type account struct {
	mint    string
	owner   string
	balance uint64
}

// Ledger is a mutex-guarded in-memory token ledger. Supply always equals the
// sum of account balances per mint.
type Ledger struct {
	mu       sync.RWMutex
	mints    map[string]*mint
	accounts map[string]*account
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{
		mints:    make(map[string]*mint),
		accounts: make(map[string]*account),
	}
}

// CreateMint registers a new asset class.
func (l *Ledger) CreateMint(_ context.Context, id string, decimals uint8, authority string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[id]; ok {
		return domain.ErrAlreadyExists
	}
	l.mints[id] = &mint{decimals: decimals, authority: authority}
	return nil
}

// CreateAccount registers a balance-holding account for an existing mint.
func (l *Ledger) CreateAccount(_ context.Context, id, mintID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.mints[mintID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := l.accounts[id]; ok {
		return domain.ErrAlreadyExists
	}
	l.accounts[id] = &account{mint: mintID, owner: owner}
	return nil
}

// MintTo credits freshly minted units to an account of the mint.
func (l *Ledger) MintTo(_ context.Context, mintID, accountID string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mintID]
	if !ok {
		return domain.ErrNotFound
	}
	a, ok := l.accounts[accountID]
	if !ok || a.mint != mintID {
		return domain.ErrNotFound
	}
	if m.supply > math.MaxUint64-amount || a.balance > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	m.supply += amount
	a.balance += amount
	return nil
}

// Burn destroys units held by an account, shrinking the mint's supply.
func (l *Ledger) Burn(_ context.Context, mintID, accountID string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.mints[mintID]
	if !ok {
		return domain.ErrNotFound
	}
	a, ok := l.accounts[accountID]
	if !ok || a.mint != mintID {
		return domain.ErrNotFound
	}
	if a.balance < amount {
		return domain.ErrInsufficientBalance
	}
	a.balance -= amount
	m.supply -= amount
	return nil
}

// Transfer moves units between two accounts of the same mint.
func (l *Ledger) Transfer(_ context.Context, fromID, toID string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from, ok := l.accounts[fromID]
	if !ok {
		return domain.ErrNotFound
	}
	to, ok := l.accounts[toID]
	if !ok {
		return domain.ErrNotFound
	}
	if from.mint != to.mint {
		return errMintMismatch
	}
	if from.balance < amount {
		return domain.ErrInsufficientBalance
	}
	if to.balance > math.MaxUint64-amount {
		return domain.ErrMathOverflow
	}
	from.balance -= amount
	to.balance += amount
	return nil
}

// Balance returns an account's balance.
func (l *Ledger) Balance(_ context.Context, accountID string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[accountID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return a.balance, nil
}

// Supply returns a mint's outstanding supply.
func (l *Ledger) Supply(_ context.Context, mintID string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.mints[mintID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return m.supply, nil
}

// Snapshot deep-copies the ledger state and returns a function restoring it,
// letting the in-memory unit of work roll back token moves.
func (l *Ledger) Snapshot() func() {
	l.mu.RLock()
	mints := make(map[string]*mint, len(l.mints))
	for id, m := range l.mints {
		copied := *m
		mints[id] = &copied
	}
	accounts := make(map[string]*account, len(l.accounts))
	for id, a := range l.accounts {
		copied := *a
		accounts[id] = &copied
	}
	l.mu.RUnlock()
	return func() {
		l.mu.Lock()
		l.mints = mints
		l.accounts = accounts
		l.mu.Unlock()
	}
}

// Compile-time interface check.
var _ domain.TokenLedger = (*Ledger)(nil)
