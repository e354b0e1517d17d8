package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// UpsertBatch inserts or updates event rows.
func (s *EventStore) UpsertBatch(ctx context.Context, events []domain.MarketEvent) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
		INSERT INTO market_events (id, title, slug, start_date, end_date, tags, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title      = EXCLUDED.title,
			slug       = EXCLUDED.slug,
			start_date = EXCLUDED.start_date,
			end_date   = EXCLUDED.end_date,
			tags       = EXCLUDED.tags,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, ev := range events {
		tags, err := json.Marshal(nonNilTags(ev.Tags))
		if err != nil {
			return fmt.Errorf("postgres: encode tags for event %s: %w", ev.ID, err)
		}
		batch.Queue(query, ev.ID, ev.Title, ev.Slug, ev.StartDate, ev.EndDate, tags)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert event batch item %d: %w", i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
