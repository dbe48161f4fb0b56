package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionCols = `market_id, user_addr, yes_tokens, no_tokens, total_deposited, total_withdrawn`

func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (` + positionCols + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (market_id, user_addr) DO UPDATE SET
			yes_tokens      = EXCLUDED.yes_tokens,
			no_tokens       = EXCLUDED.no_tokens,
			total_deposited = EXCLUDED.total_deposited,
			total_withdrawn = EXCLUDED.total_withdrawn,
			updated_at      = NOW()`

	_, err := db(ctx, s.pool).Exec(ctx, query,
		int64(p.MarketID), p.User.Hex(),
		int64(p.YesTokens), int64(p.NoTokens),
		int64(p.TotalDeposited), int64(p.TotalWithdrawn),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %d/%s: %w", p.MarketID, p.User.Hex(), err)
	}
	return nil
}

func (s *PositionStore) Get(ctx context.Context, marketID uint64, user common.Address) (domain.Position, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE market_id = $1 AND user_addr = $2`,
		int64(marketID), user.Hex())
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %d/%s: %w", marketID, user.Hex(), err)
	}
	return p, nil
}

func (s *PositionStore) ListByUser(ctx context.Context, user common.Address, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionCols + ` FROM positions WHERE user_addr = $1 ORDER BY market_id`
	query, args := paginate(query, []any{user.Hex()}, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for %s: %w", user.Hex(), err)
	}
	defer rows.Close()
	return collectPositions(rows)
}

func (s *PositionStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionCols + ` FROM positions WHERE market_id = $1 ORDER BY user_addr`
	query, args := paginate(query, []any{int64(marketID)}, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions for market %d: %w", marketID, err)
	}
	defer rows.Close()
	return collectPositions(rows)
}

func scanPosition(row pgx.Row) (domain.Position, error) {
	var (
		p              domain.Position
		marketID       int64
		user           string
		yesTokens      int64
		noTokens       int64
		totalDeposited int64
		totalWithdrawn int64
	)
	err := row.Scan(&marketID, &user, &yesTokens, &noTokens, &totalDeposited, &totalWithdrawn)
	if err != nil {
		return domain.Position{}, err
	}
	p.MarketID = uint64(marketID)
	p.User = common.HexToAddress(user)
	p.YesTokens = uint64(yesTokens)
	p.NoTokens = uint64(noTokens)
	p.TotalDeposited = uint64(totalDeposited)
	p.TotalWithdrawn = uint64(totalWithdrawn)
	return p, nil
}

func collectPositions(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate positions: %w", err)
	}
	return positions, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
