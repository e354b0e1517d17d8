package domain

import (
	"context"
	"time"
)

// FreshQuery selects stored markets fetched at or after Since.
type FreshQuery struct {
	Since time.Time
	// TagIDs, when non-empty, restricts results to markets whose event
	// carries at least one of the tags.
	TagIDs []int
	// OrderBy is one of "volume", "volume24hr", "created".
	OrderBy string
	Limit   int
}

// MarketStore persists normalized markets. It is a read-through cache for
// live requests and is written only by the sync job.
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListFresh(ctx context.Context, q FreshQuery) ([]Market, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// MarketEvent is one row of market_events.
type MarketEvent struct {
	ID        string
	Title     string
	Slug      string
	StartDate *time.Time
	EndDate   *time.Time
	Tags      []Tag
}

// EventStore persists event-level context.
type EventStore interface {
	UpsertBatch(ctx context.Context, events []MarketEvent) error
}

// CategoryStore persists observed category counts.
type CategoryStore interface {
	ReplaceCounts(ctx context.Context, counts []CategoryCount) error
	ListTop(ctx context.Context, limit int, since time.Time) ([]CategoryCount, error)
}

// PriceHistoryStore appends price snapshots.
type PriceHistoryStore interface {
	AppendBatch(ctx context.Context, points []PricePoint) error
}
