package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/metrics"
	"github.com/alanyoungcy/marketfeed/internal/platform/kalshi"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

// Catalog is the subset of the Gamma client the feed reads from.
type Catalog interface {
	ListEvents(ctx context.Context, q polymarket.EventQuery) ([]polymarket.APIEvent, error)
	ListMarkets(ctx context.Context, q polymarket.EventQuery) ([]polymarket.APIMarket, error)
	GetMarket(ctx context.Context, id string) (polymarket.APIMarket, error)
	ListTags(ctx context.Context) ([]polymarket.APITag, error)
}

// KalshiCatalog is the subset of the Kalshi client the feed reads from.
type KalshiCatalog interface {
	GetMarkets(ctx context.Context, q kalshi.MarketsQuery) (kalshi.MarketsPage, error)
}

// SubFetch is one independent upstream query whose records are already
// normalized.
type SubFetch struct {
	Source string
	Run    func(ctx context.Context) ([]domain.Market, error)
}

// maxParallelFetches bounds concurrent upstream requests per listing.
const maxParallelFetches = 4

// Fetcher runs sub-fetches concurrently and merges their results in
// declaration order. A failing sub-fetch is logged and contributes nothing;
// only when every sub-fetch fails does FetchAll return an error.
type Fetcher struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewFetcher creates a Fetcher.
func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		logger: logger.With(slog.String("component", "fetcher")),
		now:    time.Now,
	}
}

// FetchAll runs subs and returns the concatenation of their results.
func (f *Fetcher) FetchAll(ctx context.Context, subs []SubFetch) ([]domain.Market, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("feed: fetch: %w: no sources configured", domain.ErrAllSourcesFailed)
	}

	results := make([][]domain.Market, len(subs))
	errs := make([]error, len(subs))

	var g errgroup.Group
	g.SetLimit(maxParallelFetches)
	for i, sub := range subs {
		g.Go(func() error {
			start := time.Now()
			markets, err := sub.Run(ctx)
			metrics.RecordUpstream(sub.Source, time.Since(start), err)
			if err != nil {
				f.logger.Warn("sub-fetch failed",
					slog.String("source", sub.Source),
					slog.String("error", err.Error()),
				)
				errs[i] = err
				return nil
			}
			fetchedAt := f.now()
			for j := range markets {
				markets[j].FetchedAt = fetchedAt
			}
			results[i] = markets
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var merged []domain.Market
	for i := range subs {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failed == len(subs) {
		return nil, fmt.Errorf("feed: fetch: %w: %v", domain.ErrAllSourcesFailed, errs[0])
	}
	return merged, nil
}

// --------------------------------------------------------------------------
// Sub-fetch constructors
// --------------------------------------------------------------------------

// EventsFetch flattens /events into one Market per child market, each
// carrying its event context.
func EventsFetch(c Catalog, q polymarket.EventQuery) SubFetch {
	return SubFetch{
		Source: sourceName("gamma.events", q.TagID),
		Run: func(ctx context.Context) ([]domain.Market, error) {
			events, err := c.ListEvents(ctx, q)
			if err != nil {
				return nil, err
			}
			var out []domain.Market
			for i := range events {
				ev := &events[i]
				for j := range ev.Markets {
					out = append(out, NormalizePolymarket(&ev.Markets[j], ev))
				}
			}
			return out, nil
		},
	}
}

// MarketsFetch reads /markets directly. When the query is tag-filtered the
// tag is attached to markets that arrive without event tags, since the
// upstream already guaranteed the match.
func MarketsFetch(c Catalog, q polymarket.EventQuery) SubFetch {
	return SubFetch{
		Source: sourceName("gamma.markets", q.TagID),
		Run: func(ctx context.Context) ([]domain.Market, error) {
			markets, err := c.ListMarkets(ctx, q)
			if err != nil {
				return nil, err
			}
			out := make([]domain.Market, 0, len(markets))
			for i := range markets {
				m := NormalizePolymarket(&markets[i], nil)
				if q.TagID != 0 && len(m.EventTags) == 0 {
					m.EventTags = []domain.Tag{{ID: strconv.Itoa(q.TagID)}}
				}
				out = append(out, m)
			}
			return out, nil
		},
	}
}

// kalshiPageSize is the Kalshi API maximum.
const kalshiPageSize = 1000

// KalshiFetch pages through open Kalshi markets until want markets have been
// read or the cursor runs out.
func KalshiFetch(c KalshiCatalog, want int) SubFetch {
	return SubFetch{
		Source: "kalshi.markets",
		Run: func(ctx context.Context) ([]domain.Market, error) {
			var out []domain.Market
			cursor := ""
			for {
				page, err := c.GetMarkets(ctx, kalshi.MarketsQuery{
					Limit:  min(want-len(out), kalshiPageSize),
					Cursor: cursor,
					Status: "open",
				})
				if err != nil {
					if len(out) > 0 {
						return out, nil
					}
					return nil, err
				}
				for i := range page.Markets {
					out = append(out, NormalizeKalshi(&page.Markets[i]))
				}
				if page.Cursor == "" || len(page.Markets) == 0 || len(out) >= want {
					return out, nil
				}
				cursor = page.Cursor
			}
		},
	}
}

func sourceName(base string, tagID int) string {
	if tagID == 0 {
		return base
	}
	return base + ":" + strconv.Itoa(tagID)
}
