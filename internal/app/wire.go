package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	s3blob "github.com/alanyoungcy/marketfeed/internal/blob/s3"
	"github.com/alanyoungcy/marketfeed/internal/cache/memory"
	"github.com/alanyoungcy/marketfeed/internal/cache/redis"
	"github.com/alanyoungcy/marketfeed/internal/config"
	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/feed"
	"github.com/alanyoungcy/marketfeed/internal/notify"
	"github.com/alanyoungcy/marketfeed/internal/pipeline"
	"github.com/alanyoungcy/marketfeed/internal/platform/kalshi"
	"github.com/alanyoungcy/marketfeed/internal/platform/polymarket"
	"github.com/alanyoungcy/marketfeed/internal/server/handler"
	"github.com/alanyoungcy/marketfeed/internal/store/postgres"
)

// ResponseCache is a domain.ResponseCache the sync job can purge.
type ResponseCache interface {
	domain.ResponseCache
	pipeline.Purger
}

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Optional dependencies are nil interfaces when their
// backend is not configured.
type Dependencies struct {
	// Upstreams
	Catalog *polymarket.GammaClient
	Kalshi  feed.KalshiCatalog

	// Stores
	MarketStore   domain.MarketStore
	EventStore    domain.EventStore
	CategoryStore domain.CategoryStore
	PriceStore    domain.PriceHistoryStore

	// Caches and coordination
	ResponseCache ResponseCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Blob storage
	Archiver pipeline.SnapshotArchiver

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks are pinged by GET /api/health.
	HealthChecks map[string]handler.Pinger
}

// pingFunc adapts a health function to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{HealthChecks: map[string]handler.Pinger{}}

	// --- Upstream catalogs ---
	deps.Catalog = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, cfg.Polymarket.RequestsPerSecond)
	if cfg.Kalshi.Enabled {
		kc := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey, cfg.Kalshi.RequestsPerSecond)
		if cfg.Kalshi.RsaPrivateKeyPath != "" {
			pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
			if err != nil {
				return fail(fmt.Errorf("wire: kalshi key: %w", err))
			}
			if err := kc.SetRSAPrivateKey(pemBytes); err != nil {
				return fail(fmt.Errorf("wire: kalshi key: %w", err))
			}
		}
		deps.Kalshi = kc
	}

	// --- PostgreSQL (optional read-through store, required by the sync job) ---
	if cfg.Supabase.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.EventStore = postgres.NewEventStore(pool)
		deps.CategoryStore = postgres.NewCategoryStore(pool)
		deps.PriceStore = postgres.NewPriceHistoryStore(pool)
		deps.HealthChecks["postgres"] = pgClient
	}

	// --- Redis (optional; per-instance memory fallbacks otherwise) ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			URL:        cfg.Redis.URL,
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		if cfg.Cache.Backend == config.CacheRedis {
			deps.ResponseCache = redis.NewResponseCache(redisClient, cfg.Cache.TTL.Duration)
		}
		deps.HealthChecks["redis"] = redisClient
	} else {
		deps.RateLimiter = memory.NewRateLimiter(10 * time.Minute)
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
	}
	if deps.ResponseCache == nil {
		deps.ResponseCache = memory.NewResponseCache(cfg.Cache.Capacity, cfg.Cache.TTL.Duration)
	}

	// --- S3 blob storage (optional snapshot archive) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if cfg.Sync.Archive {
			deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.NewWriter(s3Client))
		}
		deps.HealthChecks["s3"] = pingFunc(s3Client.Health)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
