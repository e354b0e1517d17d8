package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/cache/memory"
	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/feed"
	"github.com/alanyoungcy/marketfeed/internal/notify"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
)

var syncNow = time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	mu     sync.Mutex
	events []polymarket.APIEvent
	err    error
}

func (c *fakeCatalog) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeCatalog) ListEvents(_ context.Context, q polymarket.EventQuery) ([]polymarket.APIEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if q.TagID == 0 {
		if q.Offset > 0 {
			return nil, nil
		}
		return c.events, nil
	}
	var out []polymarket.APIEvent
	for _, ev := range c.events {
		for _, t := range ev.Tags {
			if n, ok := domain.TagNumber(string(t.ID)); ok && n == q.TagID {
				out = append(out, ev)
				break
			}
		}
	}
	return out, nil
}

func (c *fakeCatalog) ListMarkets(context.Context, polymarket.EventQuery) ([]polymarket.APIMarket, error) {
	return nil, nil
}

func (c *fakeCatalog) GetMarket(context.Context, string) (polymarket.APIMarket, error) {
	return polymarket.APIMarket{}, domain.ErrNotFound
}

func (c *fakeCatalog) ListTags(context.Context) ([]polymarket.APITag, error) { return nil, nil }

type fakeMarketStore struct {
	mu      sync.Mutex
	rows    map[string]domain.Market
	batches int
	before  time.Time
	deleted int64
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{rows: map[string]domain.Market{}}
}

func (s *fakeMarketStore) UpsertBatch(_ context.Context, markets []domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	for _, m := range markets {
		s.rows[m.ID] = m
	}
	return nil
}

func (s *fakeMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) ListFresh(context.Context, domain.FreshQuery) ([]domain.Market, error) {
	return nil, nil
}

func (s *fakeMarketStore) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = before
	return s.deleted, nil
}

func (s *fakeMarketStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

type fakeEventStore struct{ events []domain.MarketEvent }

func (s *fakeEventStore) UpsertBatch(_ context.Context, events []domain.MarketEvent) error {
	s.events = events
	return nil
}

type fakeCategoryStore struct{ counts []domain.CategoryCount }

func (s *fakeCategoryStore) ReplaceCounts(_ context.Context, counts []domain.CategoryCount) error {
	s.counts = counts
	return nil
}

func (s *fakeCategoryStore) ListTop(context.Context, int, time.Time) ([]domain.CategoryCount, error) {
	return s.counts, nil
}

type fakePriceStore struct{ points []domain.PricePoint }

func (s *fakePriceStore) AppendBatch(_ context.Context, points []domain.PricePoint) error {
	s.points = points
	return nil
}

type recordingArchiver struct {
	runs    []string
	markets int
	err     error
}

func (a *recordingArchiver) Archive(_ context.Context, runID string, _ time.Time, markets []domain.Market) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.runs = append(a.runs, runID)
	a.markets = len(markets)
	return "snapshots/" + runID + ".jsonl", nil
}

type countingPurger struct{ purges int }

func (p *countingPurger) Purge(context.Context) error {
	p.purges++
	return nil
}

type recordingSender struct{ alerts []notify.Alert }

func (s *recordingSender) Send(_ context.Context, a notify.Alert) error {
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSender) Name() string { return "recording" }

func fixtureEvent(t *testing.T, v map[string]any) polymarket.APIEvent {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	var ev polymarket.APIEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return ev
}

func fixtureMarket(id string, vol24 float64, prices string, closed bool) map[string]any {
	return map[string]any{
		"id":            id,
		"question":      "Q " + id,
		"volume":        vol24 * 10,
		"volume24hr":    vol24,
		"active":        true,
		"closed":        closed,
		"outcomes":      `["Yes","No"]`,
		"outcomePrices": prices,
	}
}

func syncCatalog(t *testing.T) *fakeCatalog {
	return &fakeCatalog{events: []polymarket.APIEvent{
		fixtureEvent(t, map[string]any{
			"id": "ev-pol", "title": "Senate control", "slug": "senate-control",
			"tags": []map[string]any{{"id": 2, "label": "Politics", "slug": "politics"}},
			"markets": []any{
				fixtureMarket("senate", 300, `["0.55","0.45"]`, false),
				fixtureMarket("senate-old", 900, `["1","0"]`, false),
			},
		}),
		fixtureEvent(t, map[string]any{
			"id": "ev-btc", "title": "Bitcoin above 100k", "slug": "btc-100k",
			"tags": []map[string]any{
				{"id": 21, "label": "Crypto", "slug": "crypto"},
				{"id": 1, "label": "Featured", "slug": "featured"},
			},
			"markets": []any{
				fixtureMarket("btc", 500, `["0.3","0.7"]`, false),
				fixtureMarket("btc-closed", 50, `["0.3","0.7"]`, true),
			},
		}),
	}}
}

type syncFixture struct {
	sync       *MarketSync
	catalog    *fakeCatalog
	markets    *fakeMarketStore
	events     *fakeEventStore
	categories *fakeCategoryStore
	prices     *fakePriceStore
	archiver   *recordingArchiver
	purger     *countingPurger
	sender     *recordingSender
	locks      *memory.LockManager
	bus        *memory.SignalBus
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	f := &syncFixture{
		catalog:    syncCatalog(t),
		markets:    newFakeMarketStore(),
		events:     &fakeEventStore{},
		categories: &fakeCategoryStore{},
		prices:     &fakePriceStore{},
		archiver:   &recordingArchiver{},
		purger:     &countingPurger{},
		sender:     &recordingSender{},
		locks:      memory.NewLockManager(),
		bus:        memory.NewSignalBus(),
	}
	f.sync = NewMarketSync(SyncDeps{
		Catalog:    f.catalog,
		Fetcher:    feed.NewFetcher(logger),
		Markets:    f.markets,
		Events:     f.events,
		Categories: f.categories,
		Prices:     f.prices,
		Locks:      f.locks,
		Archiver:   f.archiver,
		Bus:        f.bus,
		Cache:      f.purger,
		Notifier:   notify.NewNotifier([]notify.Sender{f.sender}, nil, logger),
	}, SyncConfig{PageSize: 100, MaxEvents: 100}, logger)
	f.sync.now = func() time.Time { return syncNow }
	f.sync.newID = func() string { return "run-1" }
	return f
}

func TestMarketSyncStoresLiveMarkets(t *testing.T) {
	f := newSyncFixture(t)
	if _, ok := f.sync.LastReport(); ok {
		t.Fatal("last report before any run")
	}

	report, err := f.sync.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last, ok := f.sync.LastReport(); !ok || last.RunID != report.RunID {
		t.Errorf("LastReport = %+v, %v", last, ok)
	}

	if len(f.markets.rows) != 2 {
		t.Fatalf("stored %d markets, want 2: %v", len(f.markets.rows), f.markets.rows)
	}
	for _, id := range []string{"senate", "btc"} {
		if _, ok := f.markets.rows[id]; !ok {
			t.Errorf("market %s not stored", id)
		}
	}
	if report.Stored != 2 || report.RunID != "run-1" {
		t.Errorf("report = %+v", report)
	}
	// The trending page and the category reads both return each event.
	if report.Fetched <= report.Stored {
		t.Errorf("fetched %d, want more than stored %d before dedupe", report.Fetched, report.Stored)
	}

	if len(f.events.events) != 2 || report.Events != 2 {
		t.Errorf("events = %d (report %d), want 2", len(f.events.events), report.Events)
	}
	labels := map[string]int{}
	for _, c := range f.categories.counts {
		labels[c.Label] = c.Count
	}
	if labels["Politics"] != 1 || labels["Crypto"] != 1 {
		t.Errorf("category counts = %v", labels)
	}
	if _, ok := labels["Featured"]; ok {
		t.Error("structural tag counted as a category")
	}
	if len(f.prices.points) != 2 || !f.prices.points[0].RecordedAt.Equal(syncNow) {
		t.Errorf("price points = %+v", f.prices.points)
	}
	if report.Archived != "snapshots/run-1.jsonl" || f.archiver.markets != 2 {
		t.Errorf("archive = %q with %d markets", report.Archived, f.archiver.markets)
	}
	if f.purger.purges != 1 {
		t.Errorf("purges = %d, want 1", f.purger.purges)
	}
	if len(f.sender.alerts) != 0 {
		t.Errorf("unexpected alerts: %+v", f.sender.alerts)
	}
}

func TestMarketSyncOrdersByDayVolume(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.cfg.MaxMarkets = 1

	if _, err := f.sync.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := f.markets.rows["btc"]; !ok || len(f.markets.rows) != 1 {
		t.Errorf("stored %v, want only btc", f.markets.rows)
	}
}

func TestMarketSyncSkipsWhenLockHeld(t *testing.T) {
	f := newSyncFixture(t)
	unlock, err := f.locks.Acquire(context.Background(), syncLockKey, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	_, err = f.sync.Run(context.Background())
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if f.markets.batchCount() != 0 {
		t.Error("store written while lock held")
	}
}

func TestMarketSyncAlertsOnFailureAndRecovery(t *testing.T) {
	f := newSyncFixture(t)
	f.catalog.setErr(errors.New("gamma down"))

	_, err := f.sync.Run(context.Background())
	if !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("err = %v, want ErrAllSourcesFailed", err)
	}
	if len(f.sender.alerts) != 1 || f.sender.alerts[0].Event != notify.EventSyncFailed {
		t.Fatalf("alerts after failure = %+v", f.sender.alerts)
	}
	if f.purger.purges != 0 {
		t.Error("cache purged after failed run")
	}

	// Recovery alerts once, not on every later success.
	f.catalog.setErr(nil)
	if _, err := f.sync.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := f.sync.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.sender.alerts) != 2 || f.sender.alerts[1].Event != notify.EventSyncRecovered {
		t.Errorf("alerts = %+v", f.sender.alerts)
	}
}

func TestMarketSyncArchiveFailureIsNotFatal(t *testing.T) {
	f := newSyncFixture(t)
	f.archiver.err = errors.New("s3 unavailable")

	report, err := f.sync.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Archived != "" || report.Stored != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestMarketSyncPublishesReport(t *testing.T) {
	f := newSyncFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.bus.Subscribe(ctx, domain.ChannelSyncCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.sync.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case payload := <-ch:
		var report domain.SyncReport
		if err := json.Unmarshal(payload, &report); err != nil {
			t.Fatalf("decode report: %v", err)
		}
		if report.RunID != "run-1" || report.Stored != 2 {
			t.Errorf("published report = %+v", report)
		}
	case <-time.After(time.Second):
		t.Fatal("no report published")
	}
}

func TestMarketSyncRunLoopTrigger(t *testing.T) {
	f := newSyncFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.sync.RunLoop(ctx, time.Hour) }()

	waitFor(t, func() bool { return f.markets.batchCount() >= 1 })
	f.sync.TriggerChannel() <- struct{}{}
	waitFor(t, func() bool { return f.markets.batchCount() >= 2 })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunLoop returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunLoop did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
