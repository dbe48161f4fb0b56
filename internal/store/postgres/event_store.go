package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. Payloads are
// stored as JSONB and come back as json.RawMessage.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

func (s *EventStore) Append(ctx context.Context, e domain.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("postgres: marshal event payload: %w", err)
	}

	const query = `
		INSERT INTO events (id, type, market_id, at, created_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = db(ctx, s.pool).Exec(ctx, query,
		e.ID, string(e.Type), int64(e.MarketID), e.At, e.CreatedAt, data,
	)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", e.ID, err)
	}
	return nil
}

const eventCols = `id, type, market_id, at, created_at, data`

func (s *EventStore) ListByMarket(ctx context.Context, marketID uint64, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE market_id = $1 ORDER BY created_at`
	query, args := paginate(query, []any{int64(marketID)}, opts)

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for market %d: %w", marketID, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *EventStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE created_at < $1 ORDER BY created_at`
	args := []any{cutoff}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := db(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before %s: %w", cutoff, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (s *EventStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db(ctx, s.pool).Exec(ctx, `DELETE FROM events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete events before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			e        domain.Event
			typ      string
			marketID int64
			data     []byte
		)
		if err := rows.Scan(&e.ID, &typ, &marketID, &e.At, &e.CreatedAt, &data); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		e.MarketID = uint64(marketID)
		e.Data = json.RawMessage(data)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return events, nil
}

var _ domain.EventStore = (*EventStore)(nil)
