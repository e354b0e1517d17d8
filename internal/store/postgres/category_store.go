package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// CategoryStore implements domain.CategoryStore using PostgreSQL.
type CategoryStore struct {
	pool *pgxpool.Pool
}

// NewCategoryStore creates a CategoryStore backed by the given pool.
func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

// ReplaceCounts swaps the whole categories table for counts in one
// transaction, so readers never see a partial tally.
func (s *CategoryStore) ReplaceCounts(ctx context.Context, counts []domain.CategoryCount) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace categories: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("postgres: clear categories: %w", err)
	}
	for _, c := range counts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO categories (slug, label, count, updated_at) VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (slug) DO UPDATE SET count = categories.count + EXCLUDED.count`,
			c.Slug, c.Label, c.Count,
		); err != nil {
			return fmt.Errorf("postgres: insert category %s: %w", c.Slug, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit categories: %w", err)
	}
	return nil
}

// ListTop returns the most frequent categories written since since.
func (s *CategoryStore) ListTop(ctx context.Context, limit int, since time.Time) ([]domain.CategoryCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slug, label, count FROM categories
		 WHERE updated_at >= $1
		 ORDER BY count DESC, label ASC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryCount
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Slug, &c.Label, &c.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list categories rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.CategoryStore = (*CategoryStore)(nil)
