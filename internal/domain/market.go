package domain

import (
	"strings"
	"time"
)

// Platform identifies the upstream provider a market was sourced from.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// ParsePlatform maps a query-string value to a Platform. Empty input selects
// Polymarket; unknown values report ok=false.
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "polymarket", "poly":
		return PlatformPolymarket, true
	case "kalshi":
		return PlatformKalshi, true
	default:
		return "", false
	}
}

// Tag is an upstream categorical label attached to events and markets.
// IDs arrive as either JSON numbers or strings and are kept verbatim.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Market is the canonical, post-normalization market shape served to
// clients and persisted by the sync job.
type Market struct {
	ID            string    `json:"id"`
	ConditionID   string    `json:"conditionId,omitempty"`
	Question      string    `json:"question"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	Image         string    `json:"image,omitempty"`
	Outcomes      []string  `json:"outcomes"`
	OutcomePrices []float64 `json:"outcomePrices"`

	Volume     float64 `json:"volume"`
	Volume24hr float64 `json:"volume24hr"`
	Volume1wk  float64 `json:"volume1wk"`
	Liquidity  float64 `json:"liquidity"`

	Active   bool `json:"active"`
	Closed   bool `json:"closed"`
	Resolved bool `json:"resolved"`

	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	GameStartTime *time.Time `json:"gameStartTime,omitempty"`

	EventID        string     `json:"eventId,omitempty"`
	EventTitle     string     `json:"eventTitle,omitempty"`
	EventSlug      string     `json:"eventSlug,omitempty"`
	EventStartDate *time.Time `json:"eventStartDate,omitempty"`
	EventEndDate   *time.Time `json:"eventEndDate,omitempty"`
	EventTags      []Tag      `json:"eventTags,omitempty"`

	Platform Platform `json:"platform"`

	// Derived during classification.
	Category   string `json:"category,omitempty"`
	SportsWeek int    `json:"sportsWeek,omitempty"`

	FetchedAt time.Time `json:"-"`
}

// Key is the identity used for deduplication: the market ID, or the
// condition ID when the upstream record carried no ID.
func (m *Market) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.ConditionID
}

// SearchText is the lower-cased concatenation of every free-text field the
// classifier matches against.
func (m *Market) SearchText() string {
	return strings.ToLower(strings.Join([]string{
		m.Question, m.Slug, m.EventTitle, m.EventSlug,
	}, " "))
}

// StartTime returns the best known kickoff/start timestamp: the game start
// time, then the event start, then the market start.
func (m *Market) StartTime() *time.Time {
	switch {
	case m.GameStartTime != nil:
		return m.GameStartTime
	case m.EventStartDate != nil:
		return m.EventStartDate
	default:
		return m.StartDate
	}
}

// Created returns the creation timestamp, falling back to the start dates.
func (m *Market) Created() *time.Time {
	if m.CreatedAt != nil {
		return m.CreatedAt
	}
	if m.StartDate != nil {
		return m.StartDate
	}
	return m.EventStartDate
}

// HasTagID reports whether any event tag carries one of the given numeric IDs.
func (m *Market) HasTagID(ids ...int) bool {
	for _, t := range m.EventTags {
		n, ok := TagNumber(t.ID)
		if !ok {
			continue
		}
		for _, id := range ids {
			if n == id {
				return true
			}
		}
	}
	return false
}

// PricePoint is one row of market_price_history.
type PricePoint struct {
	MarketID      string
	OutcomePrices []float64
	Volume24hr    float64
	RecordedAt    time.Time
}
