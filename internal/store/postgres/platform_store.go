package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// PlatformStore implements domain.PlatformStore using PostgreSQL. The table
// holds at most one row, enforced by a constant primary key.
type PlatformStore struct {
	pool *pgxpool.Pool
}

// NewPlatformStore creates a PlatformStore backed by the given pool.
func NewPlatformStore(pool *pgxpool.Pool) *PlatformStore {
	return &PlatformStore{pool: pool}
}

func (s *PlatformStore) Create(ctx context.Context, p domain.Platform) error {
	const query = `
		INSERT INTO platform (id, authority, market_count, total_volume, fee_bps, treasury)
		VALUES (1, $1, $2, $3, $4, $5)`

	_, err := db(ctx, s.pool).Exec(ctx, query,
		p.Authority.Hex(), int64(p.MarketCount), int64(p.TotalVolume), int16(p.FeeBps), p.Treasury,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create platform: %w", err)
	}
	return nil
}

func (s *PlatformStore) Get(ctx context.Context) (domain.Platform, error) {
	const query = `
		SELECT authority, market_count, total_volume, fee_bps, treasury
		FROM platform WHERE id = 1`

	var (
		p           domain.Platform
		authority   string
		marketCount int64
		totalVolume int64
		feeBps      int16
	)
	err := db(ctx, s.pool).QueryRow(ctx, query).Scan(&authority, &marketCount, &totalVolume, &feeBps, &p.Treasury)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Platform{}, domain.ErrNotFound
		}
		return domain.Platform{}, fmt.Errorf("postgres: get platform: %w", err)
	}
	p.Authority = common.HexToAddress(authority)
	p.MarketCount = uint64(marketCount)
	p.TotalVolume = uint64(totalVolume)
	p.FeeBps = uint16(feeBps)
	return p, nil
}

func (s *PlatformStore) Update(ctx context.Context, p domain.Platform) error {
	const query = `
		UPDATE platform SET
			authority    = $1,
			market_count = $2,
			total_volume = $3,
			fee_bps      = $4,
			treasury     = $5,
			updated_at   = NOW()
		WHERE id = 1`

	tag, err := db(ctx, s.pool).Exec(ctx, query,
		p.Authority.Hex(), int64(p.MarketCount), int64(p.TotalVolume), int16(p.FeeBps), p.Treasury,
	)
	if err != nil {
		return fmt.Errorf("postgres: update platform: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique or primary key
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ domain.PlatformStore = (*PlatformStore)(nil)
