package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETFEED_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETFEED_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "MARKETFEED_POLYMARKET_GAMMA_HOST")
	setFloat64(&cfg.Polymarket.RequestsPerSecond, "MARKETFEED_POLYMARKET_REQUESTS_PER_SECOND")

	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "MARKETFEED_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.BaseURL, "MARKETFEED_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.ApiKey, "MARKETFEED_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "MARKETFEED_KALSHI_RSA_PRIVATE_KEY_PATH")
	setFloat64(&cfg.Kalshi.RequestsPerSecond, "MARKETFEED_KALSHI_REQUESTS_PER_SECOND")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "MARKETFEED_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "DATABASE_URL") // platform-provided alias
	setStr(&cfg.Supabase.Host, "MARKETFEED_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "MARKETFEED_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "MARKETFEED_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "MARKETFEED_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "MARKETFEED_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "MARKETFEED_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "MARKETFEED_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "MARKETFEED_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "MARKETFEED_SUPABASE_RUN_MIGRATIONS")
	setDuration(&cfg.Supabase.Freshness, "MARKETFEED_SUPABASE_FRESHNESS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "MARKETFEED_REDIS_URL")
	setStr(&cfg.Redis.Addr, "MARKETFEED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETFEED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETFEED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETFEED_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETFEED_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETFEED_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARKETFEED_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETFEED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETFEED_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETFEED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETFEED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETFEED_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETFEED_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETFEED_S3_FORCE_PATH_STYLE")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "MARKETFEED_CACHE_BACKEND")
	setDuration(&cfg.Cache.TTL, "MARKETFEED_CACHE_TTL")
	setInt(&cfg.Cache.Capacity, "MARKETFEED_CACHE_CAPACITY")
	setInt(&cfg.Cache.MaxCacheableLimit, "MARKETFEED_CACHE_MAX_CACHEABLE_LIMIT")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "MARKETFEED_SYNC_INTERVAL")
	setInt(&cfg.Sync.PageSize, "MARKETFEED_SYNC_PAGE_SIZE")
	setInt(&cfg.Sync.MaxEvents, "MARKETFEED_SYNC_MAX_EVENTS")
	setInt(&cfg.Sync.MaxMarkets, "MARKETFEED_SYNC_MAX_MARKETS")
	setInt(&cfg.Sync.WriteBatch, "MARKETFEED_SYNC_WRITE_BATCH")
	setDuration(&cfg.Sync.LockTTL, "MARKETFEED_SYNC_LOCK_TTL")
	setBool(&cfg.Sync.Archive, "MARKETFEED_SYNC_ARCHIVE")
	setDuration(&cfg.Sync.Retention, "MARKETFEED_SYNC_RETENTION")
	setStr(&cfg.Sync.RetentionCron, "MARKETFEED_SYNC_RETENTION_CRON")

	// ── Server ──
	setInt(&cfg.Server.Port, "MARKETFEED_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform-provided alias
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETFEED_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MARKETFEED_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "MARKETFEED_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETFEED_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETFEED_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETFEED_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETFEED_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETFEED_MODE")
	setStr(&cfg.LogLevel, "MARKETFEED_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
