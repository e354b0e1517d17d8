package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketfeed/internal/classify"
	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/feed"
	"github.com/alanyoungcy/marketfeed/internal/metrics"
	"github.com/alanyoungcy/marketfeed/internal/notify"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

// SnapshotArchiver uploads the markets stored by one run.
type SnapshotArchiver interface {
	Archive(ctx context.Context, runID string, at time.Time, markets []domain.Market) (string, error)
}

// Purger drops cached responses once new rows are visible.
type Purger interface {
	Purge(ctx context.Context) error
}

// SyncDeps are the collaborators of MarketSync. Markets is required; every
// other field may be nil and its step is then skipped.
type SyncDeps struct {
	Catalog    feed.Catalog
	Fetcher    *feed.Fetcher
	Markets    domain.MarketStore
	Events     domain.EventStore
	Categories domain.CategoryStore
	Prices     domain.PriceHistoryStore
	Locks      domain.LockManager
	Archiver   SnapshotArchiver
	Bus        domain.SignalBus
	Cache      Purger
	Notifier   *notify.Notifier
}

// SyncConfig tunes a sync run.
type SyncConfig struct {
	// PageSize is the /events page size.
	PageSize int
	// MaxEvents bounds the trending event pages read per run.
	MaxEvents int
	// MaxMarkets bounds how many markets one run stores, highest 24h volume
	// first.
	MaxMarkets int
	LockTTL    time.Duration
	// WriteBatch is the number of markets per store round trip.
	WriteBatch int
}

const syncLockKey = "market-sync"

// MarketSync refreshes the store from the upstream catalog: it reads the
// trending pages and every category's tag, keeps live quoted markets, and
// writes markets, events, category counts and price history.
type MarketSync struct {
	deps    SyncDeps
	cfg     SyncConfig
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	trigger chan struct{}

	lastFailed bool

	mu   sync.Mutex
	last *domain.SyncReport
}

// NewMarketSync creates a MarketSync.
func NewMarketSync(deps SyncDeps, cfg SyncConfig, logger *slog.Logger) *MarketSync {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 1000
	}
	if cfg.WriteBatch <= 0 {
		cfg.WriteBatch = 500
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &MarketSync{
		deps:    deps,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "market_sync")),
		now:     time.Now,
		newID:   uuid.NewString,
		trigger: make(chan struct{}, 1),
	}
}

// TriggerChannel returns the channel an HTTP handler sends on to request a
// run. Sends should be non-blocking; one pending trigger is enough.
func (s *MarketSync) TriggerChannel() chan<- struct{} {
	return s.trigger
}

// LastReport returns the report of the most recent successful run.
func (s *MarketSync) LastReport() (domain.SyncReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.SyncReport{}, false
	}
	return *s.last, true
}

// Run performs one sync. It returns domain.ErrLockHeld without doing any
// work when another replica is syncing.
func (s *MarketSync) Run(ctx context.Context) (domain.SyncReport, error) {
	report := domain.SyncReport{RunID: s.newID(), StartedAt: s.now().UTC()}
	if s.deps.Markets == nil {
		return report, fmt.Errorf("market sync: no market store configured")
	}

	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.Acquire(ctx, syncLockKey, s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				metrics.RecordSyncSkipped()
				s.logger.InfoContext(ctx, "sync skipped, lock held elsewhere")
			}
			return report, fmt.Errorf("market sync: lock: %w", err)
		}
		defer unlock()
	}

	err := s.run(ctx, &report)
	report.Duration = s.now().Sub(report.StartedAt)
	metrics.RecordSync(report.Duration, report.Stored, err)

	if err != nil {
		s.logger.ErrorContext(ctx, "sync failed",
			slog.String("run_id", report.RunID),
			slog.String("error", err.Error()),
		)
		s.alert(ctx, notify.Alert{
			Event:   notify.EventSyncFailed,
			Title:   "Market sync failed",
			Message: err.Error(),
			Fields:  [][2]string{{"run", report.RunID}},
		})
		s.lastFailed = true
		return report, err
	}

	if s.lastFailed {
		s.alert(ctx, notify.Alert{
			Event:   notify.EventSyncRecovered,
			Title:   "Market sync recovered",
			Message: fmt.Sprintf("stored %d markets", report.Stored),
			Fields:  [][2]string{{"run", report.RunID}},
		})
		s.lastFailed = false
	}
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	s.publish(ctx, report)

	s.logger.InfoContext(ctx, "sync complete",
		slog.String("run_id", report.RunID),
		slog.Int("fetched", report.Fetched),
		slog.Int("stored", report.Stored),
		slog.Int("events", report.Events),
		slog.Int("categories", report.Categories),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *MarketSync) run(ctx context.Context, report *domain.SyncReport) error {
	raw, err := s.deps.Fetcher.FetchAll(ctx, s.subFetches())
	if err != nil {
		return fmt.Errorf("market sync: fetch: %w", err)
	}
	report.Fetched = len(raw)

	live := classify.Pipeline{classify.Liveness(), classify.PriceValidity()}.Apply(raw, metrics.RecordRejection)
	limit := len(live)
	if s.cfg.MaxMarkets > 0 {
		limit = s.cfg.MaxMarkets
	}
	markets := feed.Rank(domain.KindTrending, live, limit)

	for start := 0; start < len(markets); start += s.cfg.WriteBatch {
		end := min(start+s.cfg.WriteBatch, len(markets))
		err := s.deps.Markets.UpsertBatch(ctx, markets[start:end])
		metrics.RecordDatabaseQuery("upsert_markets", err)
		if err != nil {
			return fmt.Errorf("market sync: store markets: %w", err)
		}
	}
	report.Stored = len(markets)

	if s.deps.Events != nil {
		events := collectEvents(markets)
		err := s.deps.Events.UpsertBatch(ctx, events)
		metrics.RecordDatabaseQuery("upsert_events", err)
		if err != nil {
			return fmt.Errorf("market sync: store events: %w", err)
		}
		report.Events = len(events)
	}

	if s.deps.Categories != nil {
		counts := feed.CountCategories(markets, 0)
		err := s.deps.Categories.ReplaceCounts(ctx, counts)
		metrics.RecordDatabaseQuery("replace_categories", err)
		if err != nil {
			return fmt.Errorf("market sync: store categories: %w", err)
		}
		report.Categories = len(counts)
	}

	if s.deps.Prices != nil {
		err := s.deps.Prices.AppendBatch(ctx, pricePoints(markets, report.StartedAt))
		metrics.RecordDatabaseQuery("append_prices", err)
		if err != nil {
			return fmt.Errorf("market sync: store price history: %w", err)
		}
	}

	// Snapshot and cache failures do not fail the run: the store is
	// already consistent.
	if s.deps.Archiver != nil {
		path, err := s.deps.Archiver.Archive(ctx, report.RunID, report.StartedAt, markets)
		if err != nil {
			s.logger.WarnContext(ctx, "snapshot archive failed", slog.String("error", err.Error()))
		}
		report.Archived = path
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Purge(ctx); err != nil {
			s.logger.WarnContext(ctx, "cache purge failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// subFetches lists the trending pages followed by one tagged read per
// category.
func (s *MarketSync) subFetches() []feed.SubFetch {
	var subs []feed.SubFetch
	for offset := 0; offset < s.cfg.MaxEvents; offset += s.cfg.PageSize {
		subs = append(subs, feed.EventsFetch(s.deps.Catalog, polymarket.EventQuery{
			Limit: s.cfg.PageSize, Offset: offset, Order: "volume24hr",
		}))
	}
	for _, c := range domain.DefaultCategories {
		if c.TagID == 0 {
			continue
		}
		subs = append(subs, feed.EventsFetch(s.deps.Catalog, polymarket.EventQuery{
			Limit: s.cfg.PageSize, TagID: c.TagID, Order: "volume24hr",
		}))
	}
	return subs
}

func collectEvents(markets []domain.Market) []domain.MarketEvent {
	seen := map[string]bool{}
	var out []domain.MarketEvent
	for i := range markets {
		m := &markets[i]
		if m.EventID == "" || seen[m.EventID] {
			continue
		}
		seen[m.EventID] = true
		out = append(out, domain.MarketEvent{
			ID:        m.EventID,
			Title:     m.EventTitle,
			Slug:      m.EventSlug,
			StartDate: m.EventStartDate,
			EndDate:   m.EventEndDate,
			Tags:      m.EventTags,
		})
	}
	return out
}

func pricePoints(markets []domain.Market, at time.Time) []domain.PricePoint {
	out := make([]domain.PricePoint, 0, len(markets))
	for _, m := range markets {
		out = append(out, domain.PricePoint{
			MarketID:      m.ID,
			OutcomePrices: m.OutcomePrices,
			Volume24hr:    m.Volume24hr,
			RecordedAt:    at,
		})
	}
	return out
}

func (s *MarketSync) publish(ctx context.Context, report domain.SyncReport) {
	if s.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.deps.Bus.Publish(ctx, domain.ChannelSyncCompleted, payload); err != nil {
		s.logger.WarnContext(ctx, "publish sync report failed", slog.String("error", err.Error()))
	}
}

func (s *MarketSync) alert(ctx context.Context, a notify.Alert) {
	if err := s.deps.Notifier.Notify(ctx, a); err != nil {
		s.logger.WarnContext(ctx, "alert delivery failed",
			slog.String("event", a.Event),
			slog.String("error", err.Error()),
		)
	}
}

// RunLoop runs a sync immediately, then on every interval tick or trigger,
// until ctx is cancelled.
func (s *MarketSync) RunLoop(ctx context.Context, interval time.Duration) error {
	s.runLogged(ctx, "startup")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("market sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runLogged(ctx, "interval")
		case <-s.trigger:
			s.runLogged(ctx, "trigger")
		}
	}
}

func (s *MarketSync) runLogged(ctx context.Context, reason string) {
	s.logger.DebugContext(ctx, "sync starting", slog.String("reason", reason))
	if _, err := s.Run(ctx); err != nil && !errors.Is(err, domain.ErrLockHeld) {
		s.logger.DebugContext(ctx, "sync run ended with error",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}
