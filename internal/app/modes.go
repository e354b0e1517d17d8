package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/feed"
	"github.com/alanyoungcy/marketfeed/internal/pipeline"
	"github.com/alanyoungcy/marketfeed/internal/server"
	"github.com/alanyoungcy/marketfeed/internal/server/handler"
	"github.com/alanyoungcy/marketfeed/internal/server/ws"
	"github.com/alanyoungcy/marketfeed/internal/service"
)

// shutdownTimeout bounds how long in-flight HTTP requests may take to drain.
const shutdownTimeout = 5 * time.Second

// ServeMode runs the HTTP API only. Listings read the store when it is fresh
// and the live upstream otherwise; no sync loop runs in this process.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// SyncMode performs one sync run (and one retention pass when configured)
// and returns. It suits an external scheduler such as a cron job.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")

	report, err := a.newMarketSync(deps).Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "another replica is syncing, nothing to do")
			return nil
		}
		return fmt.Errorf("app: sync: %w", err)
	}
	a.logger.InfoContext(ctx, "sync finished",
		slog.String("run_id", report.RunID),
		slog.Int("stored", report.Stored),
	)

	if r := a.newRetention(deps); r != nil {
		if _, err := r.Run(ctx); err != nil {
			return fmt.Errorf("app: retention: %w", err)
		}
	}
	return nil
}

// FullMode runs the HTTP API, the sync loop and the retention cron in one
// process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	sync := a.newMarketSync(deps)
	orch := pipeline.NewOrchestrator(sync, a.newRetention(deps),
		a.cfg.Sync.Interval.Duration, a.cfg.Sync.RetentionCron, a.logger)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, sync)
	return g.Wait()
}

func (a *App) newMarketSync(deps *Dependencies) *pipeline.MarketSync {
	return pipeline.NewMarketSync(pipeline.SyncDeps{
		Catalog:    deps.Catalog,
		Fetcher:    feed.NewFetcher(a.logger),
		Markets:    deps.MarketStore,
		Events:     deps.EventStore,
		Categories: deps.CategoryStore,
		Prices:     deps.PriceStore,
		Locks:      deps.LockManager,
		Archiver:   deps.Archiver,
		Bus:        deps.SignalBus,
		Cache:      deps.ResponseCache,
		Notifier:   deps.Notifier,
	}, pipeline.SyncConfig{
		PageSize:   a.cfg.Sync.PageSize,
		MaxEvents:  a.cfg.Sync.MaxEvents,
		MaxMarkets: a.cfg.Sync.MaxMarkets,
		LockTTL:    a.cfg.Sync.LockTTL.Duration,
		WriteBatch: a.cfg.Sync.WriteBatch,
	}, a.logger)
}

// newRetention returns nil when pruning is disabled or there is no store.
func (a *App) newRetention(deps *Dependencies) *pipeline.Retention {
	if deps.MarketStore == nil || a.cfg.Sync.Retention.Duration <= 0 {
		return nil
	}
	return pipeline.NewRetention(deps.MarketStore, a.cfg.Sync.Retention.Duration, a.logger)
}

// startHTTPServer builds the service and handlers and runs the server and
// WebSocket hub on g. sync is nil when this process runs no sync loop.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, sync *pipeline.MarketSync) {
	planner := feed.NewPlanner(deps.Catalog, deps.Kalshi, feed.NewTagResolver(deps.Catalog))
	marketSvc := service.NewMarketService(
		deps.Catalog,
		planner,
		feed.NewFetcher(a.logger),
		deps.MarketStore,
		deps.CategoryStore,
		deps.ResponseCache,
		service.MarketServiceConfig{
			Freshness:         a.cfg.Supabase.Freshness.Duration,
			MaxCacheableLimit: a.cfg.Cache.MaxCacheableLimit,
		},
		a.logger,
	)

	var trigger chan<- struct{}
	var lastSync func() (domain.SyncReport, bool)
	if sync != nil {
		trigger = sync.TriggerChannel()
		lastSync = sync.LastReport
	}

	hub := ws.NewHub(deps.SignalBus, nil, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Markets: handler.NewMarketHandler(marketSvc, a.logger),
		Sync:    handler.NewSyncHandler(trigger, a.logger),
		Status:  handler.NewStatusHandler(a.cfg.Mode, lastSync),
	}, deps.RateLimiter, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
