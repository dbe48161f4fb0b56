package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// TokenLedger implements domain.TokenLedger on PostgreSQL. Every balance
// mutation runs in a transaction; the balance CHECK constraint backstops the
// in-query underflow guards.
type TokenLedger struct {
	pool *pgxpool.Pool
}

// NewTokenLedger creates a TokenLedger backed by the given pool.
func NewTokenLedger(pool *pgxpool.Pool) *TokenLedger {
	return &TokenLedger{pool: pool}
}

func (l *TokenLedger) CreateMint(ctx context.Context, id string, decimals uint8, authority string) error {
	const query = `INSERT INTO mints (id, decimals, authority) VALUES ($1, $2, $3)`
	if _, err := db(ctx, l.pool).Exec(ctx, query, id, int16(decimals), authority); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create mint %s: %w", id, err)
	}
	return nil
}

// CreateAccount inserts the account. The conflict clause keeps a duplicate
// insert from aborting an enclosing unit-of-work transaction; callers that
// tolerate ErrAlreadyExists can keep going inside it.
func (l *TokenLedger) CreateAccount(ctx context.Context, id, mint, owner string) error {
	const query = `INSERT INTO token_accounts (id, mint, owner) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	tag, err := db(ctx, l.pool).Exec(ctx, query, id, mint, owner)
	if err != nil {
		return fmt.Errorf("postgres: create account %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (l *TokenLedger) MintTo(ctx context.Context, mint, account string, amount uint64) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE token_accounts SET balance = balance + $1 WHERE id = $2 AND mint = $3`,
			int64(amount), account, mint)
		if err != nil {
			return fmt.Errorf("credit account %s: %w", account, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		tag, err = tx.Exec(ctx,
			`UPDATE mints SET supply = supply + $1 WHERE id = $2`,
			int64(amount), mint)
		if err != nil {
			return fmt.Errorf("grow supply of %s: %w", mint, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (l *TokenLedger) Burn(ctx context.Context, mint, account string, amount uint64) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE token_accounts SET balance = balance - $1
			 WHERE id = $2 AND mint = $3 AND balance >= $1`,
			int64(amount), account, mint)
		if err != nil {
			return fmt.Errorf("debit account %s: %w", account, err)
		}
		if tag.RowsAffected() == 0 {
			return burnFailure(ctx, tx, account)
		}
		tag, err = tx.Exec(ctx,
			`UPDATE mints SET supply = supply - $1 WHERE id = $2`,
			int64(amount), mint)
		if err != nil {
			return fmt.Errorf("shrink supply of %s: %w", mint, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (l *TokenLedger) Transfer(ctx context.Context, from, to string, amount uint64) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE token_accounts SET balance = balance - $1
			 WHERE id = $2 AND balance >= $1`,
			int64(amount), from)
		if err != nil {
			return fmt.Errorf("debit account %s: %w", from, err)
		}
		if tag.RowsAffected() == 0 {
			return burnFailure(ctx, tx, from)
		}
		tag, err = tx.Exec(ctx,
			`UPDATE token_accounts SET balance = balance + $1 WHERE id = $2`,
			int64(amount), to)
		if err != nil {
			return fmt.Errorf("credit account %s: %w", to, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (l *TokenLedger) Balance(ctx context.Context, account string) (uint64, error) {
	var balance int64
	err := db(ctx, l.pool).QueryRow(ctx,
		`SELECT balance FROM token_accounts WHERE id = $1`, account).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: balance of %s: %w", account, err)
	}
	return uint64(balance), nil
}

func (l *TokenLedger) Supply(ctx context.Context, mint string) (uint64, error) {
	var supply int64
	err := db(ctx, l.pool).QueryRow(ctx,
		`SELECT supply FROM mints WHERE id = $1`, mint).Scan(&supply)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: supply of %s: %w", mint, err)
	}
	return uint64(supply), nil
}

// inTx runs fn inside a transaction, committing on success. When the context
// already carries a unit-of-work transaction, fn joins it and the owner of
// that transaction commits or rolls back.
func (l *TokenLedger) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	if tx, ok := txFrom(ctx); ok {
		return wrapLedgerErr(fn(tx))
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return wrapLedgerErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// wrapLedgerErr keeps domain sentinels bare and prefixes everything else.
func wrapLedgerErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInsufficientBalance) {
		return err
	}
	return fmt.Errorf("postgres: %w", err)
}

// burnFailure distinguishes a missing account from an insufficient balance
// after a conditional debit matched no rows.
func burnFailure(ctx context.Context, tx pgx.Tx, account string) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM token_accounts WHERE id = $1)`, account).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check account %s: %w", account, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientBalance
}

var _ domain.TokenLedger = (*TokenLedger)(nil)
