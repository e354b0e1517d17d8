package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/classify"
	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/feed"
	"github.com/alanyoungcy/marketfeed/internal/metrics"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

// MarketServiceConfig tunes the read path.
type MarketServiceConfig struct {
	// Freshness is how old a stored row may be and still serve a request.
	Freshness time.Duration
	// MaxCacheableLimit is the largest page size whose response is cached.
	MaxCacheableLimit int
}

// MarketService serves market listings: it plans each request, reads the
// store or the live upstream, runs the classification cascade, ranks, and
// caches the response.
type MarketService struct {
	catalog    feed.Catalog
	planner    *feed.Planner
	fetcher    *feed.Fetcher
	markets    domain.MarketStore
	categories domain.CategoryStore
	cache      domain.ResponseCache
	cfg        MarketServiceConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewMarketService creates a MarketService. markets, categories and cache
// may be nil; the service then always reads live and never caches.
func NewMarketService(
	catalog feed.Catalog,
	planner *feed.Planner,
	fetcher *feed.Fetcher,
	markets domain.MarketStore,
	categories domain.CategoryStore,
	cache domain.ResponseCache,
	cfg MarketServiceConfig,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		catalog:    catalog,
		planner:    planner,
		fetcher:    fetcher,
		markets:    markets,
		categories: categories,
		cache:      cache,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "market_service")),
		now:        time.Now,
	}
}

// SetClock overrides the service's time source.
func (s *MarketService) SetClock(now func() time.Time) {
	s.now = now
}

// ListMarkets answers GET /markets. It returns an error wrapping
// domain.ErrAllSourcesFailed when every upstream sub-fetch failed.
func (s *MarketService) ListMarkets(ctx context.Context, q domain.Query) (domain.Response, error) {
	q = q.Normalize()

	cacheable := s.cache != nil && q.Limit <= s.cfg.MaxCacheableLimit
	key := q.CacheKey()
	if cacheable {
		resp, err := s.cache.Get(ctx, key)
		if err == nil {
			resp.Meta.Source = domain.SourceCache
			metrics.RecordCacheLookup("hit")
			metrics.RecordResponse(domain.SourceCache)
			return resp, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cache get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		metrics.RecordCacheLookup("miss")
	} else {
		metrics.RecordCacheLookup("skip")
	}

	plan, err := s.planner.Plan(ctx, q)
	if err != nil {
		metrics.RecordResponse("error")
		return domain.Response{}, fmt.Errorf("market_service: plan %q: %w", q.Kind, err)
	}

	meta := domain.Meta{Kind: q.Kind, Platform: q.Platform, Week: plan.Week}
	if plan.Message != "" {
		meta.Message = plan.Message
		return domain.Response{Markets: []domain.Market{}, Meta: meta}, nil
	}

	markets, source, err := s.collect(ctx, q, plan)
	if err != nil {
		metrics.RecordResponse("error")
		return domain.Response{}, fmt.Errorf("market_service: list %q: %w", q.Kind, err)
	}

	ranked := feed.Rank(q.Kind, markets, q.Limit)
	if ranked == nil {
		ranked = []domain.Market{}
	}
	meta.Total = len(ranked)
	meta.Source = source
	resp := domain.Response{Markets: ranked, Meta: meta}

	if cacheable {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	metrics.RecordResponse(source)
	return resp, nil
}

// collect returns classified markets from the store when fresh rows exist,
// otherwise from the live upstream.
func (s *MarketService) collect(ctx context.Context, q domain.Query, plan feed.Plan) ([]domain.Market, string, error) {
	if plan.Fresh != nil && s.markets != nil {
		fq := *plan.Fresh
		fq.Since = s.now().Add(-s.cfg.Freshness)
		rows, err := s.markets.ListFresh(ctx, fq)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "store read failed, falling back to live",
				slog.String("kind", q.Kind),
				slog.String("error", err.Error()),
			)
		case len(rows) > 0:
			if kept := plan.Stages.Apply(rows, metrics.RecordRejection); len(kept) > 0 {
				return kept, domain.SourceDatabase, nil
			}
		}
	}

	raw, err := s.fetcher.FetchAll(ctx, plan.Subs)
	if err != nil {
		return nil, "", err
	}

	kept := plan.Stages.Apply(raw, metrics.RecordRejection)
	if len(kept) == 0 && plan.Broad != nil {
		s.logger.InfoContext(ctx, "strict pass empty, retrying with broad rules",
			slog.String("kind", q.Kind),
			slog.Int("week", plan.Week),
		)
		kept = plan.Broad.Apply(raw, metrics.RecordRejection)
	}
	return kept, domain.SourceLive, nil
}

// GetMarket returns one market, preferring the stored copy.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.markets != nil {
		m, err := s.markets.GetByID(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "store get failed, falling back to live",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	apiMarket, err := s.catalog.GetMarket(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %q: %w", id, err)
	}
	return feed.NormalizePolymarket(&apiMarket, nil), nil
}

// categorySampleEvents is how many trending events feed a live category
// count when the store has nothing fresh.
const categorySampleEvents = 500

// ListCategories returns the most frequent category labels among live
// markets, from the store when fresh and computed live otherwise.
func (s *MarketService) ListCategories(ctx context.Context) ([]domain.CategoryCount, error) {
	if s.categories != nil {
		counts, err := s.categories.ListTop(ctx, feed.TopCategories, s.now().Add(-s.cfg.Freshness))
		if err == nil && len(counts) > 0 {
			return counts, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "category store read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	var subs []feed.SubFetch
	for offset := 0; offset < categorySampleEvents; offset += 100 {
		subs = append(subs, feed.EventsFetch(s.catalog, polymarket.EventQuery{
			Limit: 100, Offset: offset, Order: "volume24hr",
		}))
	}
	raw, err := s.fetcher.FetchAll(ctx, subs)
	if err != nil {
		return nil, fmt.Errorf("market_service: list categories: %w", err)
	}
	live := classify.Pipeline{classify.Liveness(), classify.PriceValidity()}.Apply(raw, nil)
	return feed.CountCategories(feed.Dedupe(live), feed.TopCategories), nil
}

// ListSportsSubcategories returns the static sports navigation list.
func (s *MarketService) ListSportsSubcategories() []domain.SportsSubcategory {
	return domain.SportsSubcategories
}
