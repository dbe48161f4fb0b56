package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/ghostodds/internal/domain"
)

// archiveBatchSize bounds how many events one archive object holds.
const archiveBatchSize = 10_000

// Archiver moves aged-out event log entries into cold storage. Each run
// serializes a batch of events older than the retention cutoff to JSONL,
// uploads it, and only then prunes the archived rows. An upload failure
// leaves the rows in place for the next run.
type Archiver struct {
	events    domain.EventStore
	writer    domain.BlobWriter
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver. Events older than retention are eligible.
func NewArchiver(events domain.EventStore, writer domain.BlobWriter, retention time.Duration, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		events:    events,
		writer:    writer,
		retention: retention,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run archives and prunes all eligible events, batch by batch, and returns
// the number of events archived.
func (a *Archiver) Run(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-a.retention).UTC()

	var total int64
	for {
		events, err := a.events.ListBefore(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: list events before %s: %w", cutoff, err)
		}
		if len(events) == 0 {
			break
		}

		key := archiveKey(events[0].CreatedAt, events[len(events)-1].CreatedAt)
		body, err := encodeJSONL(events)
		if err != nil {
			return total, err
		}
		if err := a.writer.Put(ctx, key, body, "application/x-ndjson"); err != nil {
			return total, fmt.Errorf("s3blob: upload archive %s: %w", key, err)
		}

		// Prune up to the last archived event, not the cutoff, so events
		// appended between list and delete are never dropped unarchived.
		pruneBefore := events[len(events)-1].CreatedAt.Add(time.Nanosecond)
		deleted, err := a.events.DeleteBefore(ctx, pruneBefore)
		if err != nil {
			return total, fmt.Errorf("s3blob: prune archived events: %w", err)
		}
		total += deleted

		a.logger.InfoContext(ctx, "event batch archived",
			slog.String("key", key),
			slog.Int("events", len(events)),
			slog.Int64("pruned", deleted),
		)

		if len(events) < archiveBatchSize {
			break
		}
	}
	return total, nil
}

// RunPeriodically runs the archiver on the given interval until the context
// is cancelled.
func (a *Archiver) RunPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Run(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive run failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func archiveKey(first, last time.Time) string {
	return fmt.Sprintf("events/%s/%s_%s.jsonl",
		first.UTC().Format("2006/01/02"),
		first.UTC().Format("150405"),
		last.UTC().Format("150405"),
	)
}

func encodeJSONL(events []domain.Event) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("s3blob: encode event %s: %w", e.ID, err)
		}
	}
	return &buf, nil
}
