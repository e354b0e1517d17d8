package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertMarketSQL = `
	INSERT INTO markets (
		id, platform, condition_id, question, slug, description, image,
		outcomes, outcome_prices, volume, volume_24hr, volume_1wk, liquidity,
		active, closed, resolved,
		created_at, start_date, end_date, game_start_time,
		event_id, event_title, event_slug, event_start_date, event_end_date,
		event_tags, tag_ids, category, fetched_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12, $13,
		$14, $15, $16,
		$17, $18, $19, $20,
		$21, $22, $23, $24, $25,
		$26, $27, $28, $29, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		platform         = EXCLUDED.platform,
		condition_id     = EXCLUDED.condition_id,
		question         = EXCLUDED.question,
		slug             = EXCLUDED.slug,
		description      = EXCLUDED.description,
		image            = EXCLUDED.image,
		outcomes         = EXCLUDED.outcomes,
		outcome_prices   = EXCLUDED.outcome_prices,
		volume           = EXCLUDED.volume,
		volume_24hr      = EXCLUDED.volume_24hr,
		volume_1wk       = EXCLUDED.volume_1wk,
		liquidity        = EXCLUDED.liquidity,
		active           = EXCLUDED.active,
		closed           = EXCLUDED.closed,
		resolved         = EXCLUDED.resolved,
		created_at       = EXCLUDED.created_at,
		start_date       = EXCLUDED.start_date,
		end_date         = EXCLUDED.end_date,
		game_start_time  = EXCLUDED.game_start_time,
		event_id         = EXCLUDED.event_id,
		event_title      = EXCLUDED.event_title,
		event_slug       = EXCLUDED.event_slug,
		event_start_date = EXCLUDED.event_start_date,
		event_end_date   = EXCLUDED.event_end_date,
		event_tags       = EXCLUDED.event_tags,
		tag_ids          = EXCLUDED.tag_ids,
		category         = EXCLUDED.category,
		fetched_at       = EXCLUDED.fetched_at,
		updated_at       = NOW()`

const marketCols = `id, platform, condition_id, question, slug, description, image,
	outcomes, outcome_prices, volume, volume_24hr, volume_1wk, liquidity,
	active, closed, resolved,
	created_at, start_date, end_date, game_start_time,
	event_id, event_title, event_slug, event_start_date, event_end_date,
	event_tags, category, fetched_at`

// UpsertBatch inserts or updates markets in a single batch round trip.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range markets {
		args, err := marketArgs(&markets[i])
		if err != nil {
			return fmt.Errorf("postgres: upsert market %s: %w", markets[i].ID, err)
		}
		batch.Queue(upsertMarketSQL, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

func marketArgs(m *domain.Market) ([]any, error) {
	outcomes, err := json.Marshal(nonNilStrings(m.Outcomes))
	if err != nil {
		return nil, err
	}
	prices, err := json.Marshal(nonNilFloats(m.OutcomePrices))
	if err != nil {
		return nil, err
	}
	tags, err := json.Marshal(nonNilTags(m.EventTags))
	if err != nil {
		return nil, err
	}
	fetchedAt := m.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	platform := m.Platform
	if platform == "" {
		platform = domain.PlatformPolymarket
	}
	return []any{
		m.ID, string(platform), m.ConditionID, m.Question, m.Slug, m.Description, m.Image,
		outcomes, prices, m.Volume, m.Volume24hr, m.Volume1wk, m.Liquidity,
		m.Active, m.Closed, m.Resolved,
		m.CreatedAt, m.StartDate, m.EndDate, m.GameStartTime,
		m.EventID, m.EventTitle, m.EventSlug, m.EventStartDate, m.EventEndDate,
		tags, tagIDs(m.EventTags), m.Category, fetchedAt,
	}, nil
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m                      domain.Market
		platform               string
		outcomes, prices, tags []byte
	)
	err := row.Scan(
		&m.ID, &platform, &m.ConditionID, &m.Question, &m.Slug, &m.Description, &m.Image,
		&outcomes, &prices, &m.Volume, &m.Volume24hr, &m.Volume1wk, &m.Liquidity,
		&m.Active, &m.Closed, &m.Resolved,
		&m.CreatedAt, &m.StartDate, &m.EndDate, &m.GameStartTime,
		&m.EventID, &m.EventTitle, &m.EventSlug, &m.EventStartDate, &m.EventEndDate,
		&tags, &m.Category, &m.FetchedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Platform = domain.Platform(platform)
	if err := json.Unmarshal(outcomes, &m.Outcomes); err != nil {
		return domain.Market{}, fmt.Errorf("decode outcomes: %w", err)
	}
	if err := json.Unmarshal(prices, &m.OutcomePrices); err != nil {
		return domain.Market{}, fmt.Errorf("decode outcome prices: %w", err)
	}
	if err := json.Unmarshal(tags, &m.EventTags); err != nil {
		return domain.Market{}, fmt.Errorf("decode event tags: %w", err)
	}
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

var freshOrders = map[string]string{
	"volume":     "volume DESC",
	"volume24hr": "volume_24hr DESC, volume DESC",
	"created":    "COALESCE(created_at, start_date, event_start_date) DESC NULLS LAST",
}

// orderClause maps a FreshQuery ordering to SQL, defaulting to 24h volume.
func orderClause(orderBy string) string {
	if o, ok := freshOrders[orderBy]; ok {
		return o
	}
	return freshOrders["volume24hr"]
}

// ListFresh returns open markets fetched since q.Since.
func (s *MarketStore) ListFresh(ctx context.Context, q domain.FreshQuery) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets
		WHERE fetched_at >= $1 AND active AND NOT closed`
	args := []any{q.Since}
	if len(q.TagIDs) > 0 {
		args = append(args, int32s(q.TagIDs))
		query += fmt.Sprintf(" AND tag_ids && $%d", len(args))
	}
	query += " ORDER BY " + orderClause(q.OrderBy)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fresh markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan fresh market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list fresh markets rows: %w", err)
	}
	return markets, nil
}

// DeleteStale removes markets not refreshed since before.
func (s *MarketStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE fetched_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete stale markets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// tagIDs extracts the numeric tag IDs used by the tag_ids GIN index.
func tagIDs(tags []domain.Tag) []int32 {
	out := make([]int32, 0, len(tags))
	for _, t := range tags {
		if n, ok := domain.TagNumber(t.ID); ok {
			out = append(out, int32(n))
		}
	}
	return out
}

func int32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, n := range in {
		out[i] = int32(n)
	}
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFloats(f []float64) []float64 {
	if f == nil {
		return []float64{}
	}
	return f
}

func nonNilTags(t []domain.Tag) []domain.Tag {
	if t == nil {
		return []domain.Tag{}
	}
	return t
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
