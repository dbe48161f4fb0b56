package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txKey carries the transaction every store in this package picks up via
// db(ctx, pool).
type txKey struct{}

// querier is the query surface shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// db returns the transaction from ctx when one is open, the pool otherwise.
func db(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// txFrom returns the open transaction in ctx, if any.
func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// Atomic implements domain.Atomic on a pgx connection pool. Atomically opens
// one transaction, threads it through the context so every store and the
// token ledger in this package write into it, and commits only when fn
// succeeds.
type Atomic struct {
	pool *pgxpool.Pool
}

// NewAtomic creates an Atomic backed by the given pool.
func NewAtomic(pool *pgxpool.Pool) *Atomic {
	return &Atomic{pool: pool}
}

func (a *Atomic) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin unit of work: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit unit of work: %w", err)
	}
	return nil
}
