package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/classify"
	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

// Plan is the per-request configuration of the shared pipeline: which
// sub-fetches to run, which stages to apply and where results may come from.
type Plan struct {
	Kind string
	Subs []SubFetch
	// Stages is the acceptance cascade; Broad, when set, is re-applied to the
	// same fetched records if Stages keeps nothing.
	Stages classify.Pipeline
	Broad  classify.Pipeline
	// Fresh is set when stored rows inside the freshness window may serve
	// the request instead of the live upstream.
	Fresh *domain.FreshQuery
	Week  int
	// Message explains a deliberately empty result.
	Message string
}

// Upstream page sizes.
const (
	eventsPageSize  = 100
	marketsPageSize = 500
	maxMarketPages  = 10
	nflEventsLimit  = 200
)

var sortOrders = map[string]string{
	domain.KindTrending: "volume24hr",
	domain.KindVolume:   "volume",
	domain.KindNew:      "startDate",
	domain.KindBreaking: "startDate",
}

var storeOrders = map[string]string{
	domain.KindVolume: "volume",
	domain.KindNew:    "created",
}

// Planner turns a Query into a Plan.
type Planner struct {
	catalog Catalog
	kalshi  KalshiCatalog
	tags    *TagResolver
	now     func() time.Time
}

// NewPlanner creates a Planner. kalshi may be nil, in which case Kalshi
// requests plan zero sub-fetches and fail as a total fetch failure.
func NewPlanner(catalog Catalog, kalshi KalshiCatalog, tags *TagResolver) *Planner {
	return &Planner{catalog: catalog, kalshi: kalshi, tags: tags, now: time.Now}
}

// SetClock overrides the planner's time source.
func (p *Planner) SetClock(now func() time.Time) {
	p.now = now
}

// Plan builds the plan for an already-normalized query.
func (p *Planner) Plan(ctx context.Context, q domain.Query) (Plan, error) {
	if q.Platform == domain.PlatformKalshi {
		return p.kalshiPlan(q), nil
	}

	switch {
	case q.IsSortMode():
		return p.sortPlan(q), nil
	case q.Kind == domain.KindNFL:
		return p.nflPlan(q), nil
	case q.SportType == domain.SportTypeGames || q.SportType == domain.SportTypeProps:
		if _, ok := domain.LookupSport(q.Kind); ok {
			return Plan{
				Kind:    q.Kind,
				Message: fmt.Sprintf("%s games: %v", strings.ToUpper(q.Kind), domain.ErrUnsupportedSport),
			}, nil
		}
	}
	return p.categoryPlan(ctx, q)
}

func (p *Planner) sortPlan(q domain.Query) Plan {
	order := sortOrders[q.Kind]
	subs := []SubFetch{
		EventsFetch(p.catalog, polymarket.EventQuery{Limit: eventsPageSize, Order: order}),
	}
	subs = append(subs, p.marketPages(polymarket.EventQuery{Order: order}, q.Limit)...)

	return Plan{
		Kind: q.Kind,
		Subs: subs,
		Stages: classify.Pipeline{
			classify.Liveness(),
			classify.PriceValidity(),
			classify.MinVolume(q.MinVolume),
		},
		Fresh: &domain.FreshQuery{OrderBy: storeOrder(q.Kind), Limit: q.Limit},
	}
}

func (p *Planner) categoryPlan(ctx context.Context, q domain.Query) (Plan, error) {
	tagID, ok, err := p.tags.Resolve(ctx, q.Kind)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %w", domain.ErrAllSourcesFailed, err)
	}
	if !ok {
		return Plan{Kind: q.Kind, Message: fmt.Sprintf("unknown category %q", q.Kind)}, nil
	}

	order := sortOrders[domain.KindTrending]
	subs := []SubFetch{
		EventsFetch(p.catalog, polymarket.EventQuery{Limit: eventsPageSize, TagID: tagID, Order: order}),
	}
	subs = append(subs, p.marketPages(polymarket.EventQuery{TagID: tagID, Order: order}, q.Limit)...)

	return Plan{
		Kind: q.Kind,
		Subs: subs,
		Stages: classify.Pipeline{
			classify.Liveness(),
			classify.Recency(p.now),
			classify.TagMatch(q.Kind, tagID),
			classify.PriceValidity(),
			classify.MinVolume(q.MinVolume),
		},
		Fresh: &domain.FreshQuery{TagIDs: []int{tagID}, OrderBy: storeOrder(q.Kind), Limit: q.Limit},
	}, nil
}

// nflPlan always reads live: week and kickoff windows move faster than the
// stored copy refreshes.
func (p *Planner) nflPlan(q domain.Query) Plan {
	nfl, _ := domain.LookupSport(domain.KindNFL)
	sports, _ := domain.LookupCategory("sports")

	subs := []SubFetch{
		EventsFetch(p.catalog, polymarket.EventQuery{Limit: nflEventsLimit, TagID: nfl.TagID, Order: "startDate", Ascending: true}),
		EventsFetch(p.catalog, polymarket.EventQuery{Limit: nflEventsLimit, TagID: sports.TagID, Order: "startDate", Ascending: true}),
		MarketsFetch(p.catalog, polymarket.EventQuery{Limit: marketsPageSize, TagID: nfl.TagID, Order: "volume24hr"}),
	}

	week := q.Week
	if week == 0 {
		week = classify.WeekAt(p.now())
	}

	if q.SportType == domain.SportTypeProps {
		return Plan{
			Kind: q.Kind,
			Subs: subs,
			Week: week,
			Stages: classify.Pipeline{
				classify.Liveness(),
				classify.Recency(p.now),
				classify.NFLContent(),
				classify.Props(),
				classify.PriceValidity(),
				classify.MinVolume(q.MinVolume),
			},
		}
	}

	strict, broad := classify.StrictWeek, classify.BroadWeek
	strict.Target, broad.Target = week, week
	return Plan{
		Kind:   q.Kind,
		Subs:   subs,
		Week:   week,
		Stages: p.nflGames(strict, classify.StrictGrace, q.MinVolume),
		Broad:  p.nflGames(broad, classify.BroadGrace, q.MinVolume),
	}
}

func (p *Planner) nflGames(rule classify.WeekRule, grace time.Duration, minVolume *float64) classify.Pipeline {
	return classify.Pipeline{
		classify.Liveness(),
		classify.NFLContent(),
		classify.WeekMatch(rule, p.now),
		classify.NotPast(grace, p.now),
		classify.Games(),
		classify.PriceValidity(),
		classify.MinVolume(minVolume),
	}
}

func (p *Planner) kalshiPlan(q domain.Query) Plan {
	var subs []SubFetch
	if p.kalshi != nil {
		subs = append(subs, KalshiFetch(p.kalshi, max(q.Limit*2, 200)))
	}

	stages := classify.Pipeline{classify.Liveness()}
	switch {
	case q.Kind == domain.KindNFL:
		stages = append(stages, classify.NFLContent())
	case !q.IsSortMode():
		stages = append(stages, kalshiCategory(q.Kind))
	}
	stages = append(stages, classify.PriceValidity(), classify.MinVolume(q.MinVolume))

	return Plan{Kind: q.Kind, Subs: subs, Stages: stages}
}

// kalshiCategory matches Kalshi's free-text category field.
func kalshiCategory(kind string) classify.Stage {
	return classify.Stage{Name: "kalshi_category", Keep: func(m *domain.Market) bool {
		return m.Category != "" && (m.Category == kind || strings.Contains(m.Category, kind))
	}}
}

// marketPages splits a /markets read of want rows into concurrent pages.
func (p *Planner) marketPages(base polymarket.EventQuery, want int) []SubFetch {
	var subs []SubFetch
	for offset := 0; offset < want && len(subs) < maxMarketPages; offset += marketsPageSize {
		q := base
		q.Limit = marketsPageSize
		q.Offset = offset
		subs = append(subs, MarketsFetch(p.catalog, q))
	}
	return subs
}

func storeOrder(kind string) string {
	if o, ok := storeOrders[kind]; ok {
		return o
	}
	return "volume24hr"
}
