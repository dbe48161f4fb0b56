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

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, authority, question, description, category, resolution_source,
	collateral_mint, yes_mint, no_mint, vault,
	yes_amount, no_amount, total_liquidity, volume,
	resolution_value, resolution_operator, oracle_feed,
	created_at, expires_at, lock_time, resolved_at, outcome, status, fee_bps`

func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (` + marketCols + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24
		)`

	_, err := db(ctx, s.pool).Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %d: %w", m.ID, err)
	}
	return nil
}

func (s *MarketStore) Get(ctx context.Context, id uint64) (domain.Market, error) {
	row := db(ctx, s.pool).QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, int64(id))
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			authority           = $2,
			question            = $3,
			description         = $4,
			category            = $5,
			resolution_source   = $6,
			collateral_mint     = $7,
			yes_mint            = $8,
			no_mint             = $9,
			vault               = $10,
			yes_amount          = $11,
			no_amount           = $12,
			total_liquidity     = $13,
			volume              = $14,
			resolution_value    = $15,
			resolution_operator = $16,
			oracle_feed         = $17,
			created_at          = $18,
			expires_at          = $19,
			lock_time           = $20,
			resolved_at         = $21,
			outcome             = $22,
			status              = $23,
			fee_bps             = $24,
			updated_at          = NOW()
		WHERE id = $1`

	tag, err := db(ctx, s.pool).Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		return fmt.Errorf("postgres: update market %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY id`
	query, args := paginate(query, nil, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE status = $1 ORDER BY id`
	query, args := paginate(query, []any{int16(status)}, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := db(ctx, s.pool).QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// marketArgs flattens a market into the positional argument order shared by
// Create and Update.
func marketArgs(m domain.Market) []any {
	var resolutionValue *int64
	if m.ResolutionValue != nil {
		v := int64(*m.ResolutionValue)
		resolutionValue = &v
	}
	var outcome *int16
	if m.Outcome != nil {
		o := int16(*m.Outcome)
		outcome = &o
	}
	return []any{
		int64(m.ID), m.Authority.Hex(), m.Question, m.Description, m.Category, m.ResolutionSource,
		m.CollateralMint, m.YesMint, m.NoMint, m.Vault,
		int64(m.YesAmount), int64(m.NoAmount), int64(m.TotalLiquidity), int64(m.Volume),
		resolutionValue, int16(m.ResolutionOperator), m.OracleFeed,
		m.CreatedAt, m.ExpiresAt, m.LockTime, m.ResolvedAt, outcome, int16(m.Status), int16(m.FeeBps),
	}
}

// scanMarket scans one market row.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m               domain.Market
		id              int64
		authority       string
		yesAmount       int64
		noAmount        int64
		totalLiquidity  int64
		volume          int64
		resolutionValue *int64
		operator        int16
		outcome         *int16
		status          int16
		feeBps          int16
	)
	err := row.Scan(
		&id, &authority, &m.Question, &m.Description, &m.Category, &m.ResolutionSource,
		&m.CollateralMint, &m.YesMint, &m.NoMint, &m.Vault,
		&yesAmount, &noAmount, &totalLiquidity, &volume,
		&resolutionValue, &operator, &m.OracleFeed,
		&m.CreatedAt, &m.ExpiresAt, &m.LockTime, &m.ResolvedAt, &outcome, &status, &feeBps,
	)
	if err != nil {
		return domain.Market{}, err
	}

	m.ID = uint64(id)
	m.Authority = common.HexToAddress(authority)
	m.YesAmount = uint64(yesAmount)
	m.NoAmount = uint64(noAmount)
	m.TotalLiquidity = uint64(totalLiquidity)
	m.Volume = uint64(volume)
	if resolutionValue != nil {
		v := uint64(*resolutionValue)
		m.ResolutionValue = &v
	}
	m.ResolutionOperator = domain.ResolutionOperator(operator)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		m.Outcome = &o
	}
	m.Status = domain.MarketStatus(status)
	m.FeeBps = uint16(feeBps)
	return m, nil
}

func collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate markets: %w", err)
	}
	return markets, nil
}

// paginate appends LIMIT/OFFSET clauses for non-zero opts.
func paginate(query string, args []any, opts domain.ListOpts) (string, []any) {
	argIdx := len(args) + 1
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

var _ domain.MarketStore = (*MarketStore)(nil)
