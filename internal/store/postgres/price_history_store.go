package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// PriceHistoryStore implements domain.PriceHistoryStore using PostgreSQL.
type PriceHistoryStore struct {
	pool *pgxpool.Pool
}

// NewPriceHistoryStore creates a PriceHistoryStore backed by the given pool.
func NewPriceHistoryStore(pool *pgxpool.Pool) *PriceHistoryStore {
	return &PriceHistoryStore{pool: pool}
}

// AppendBatch inserts one history row per point.
func (s *PriceHistoryStore) AppendBatch(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	const query = `
		INSERT INTO market_price_history (market_id, outcome_prices, volume_24hr, recorded_at)
		VALUES ($1, $2, $3, $4)`

	batch := &pgx.Batch{}
	for _, p := range points {
		prices, err := json.Marshal(nonNilFloats(p.OutcomePrices))
		if err != nil {
			return fmt.Errorf("postgres: encode prices for %s: %w", p.MarketID, err)
		}
		batch.Queue(query, p.MarketID, prices, p.Volume24hr, p.RecordedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append price batch item %d: %w", i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.PriceHistoryStore = (*PriceHistoryStore)(nil)
