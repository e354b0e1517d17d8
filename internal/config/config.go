// Package config defines the top-level configuration for the market feed
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETFEED_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Cache      CacheConfig      `toml:"cache"`
	Sync       SyncConfig       `toml:"sync"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Gamma catalog endpoint.
type PolymarketConfig struct {
	GammaHost         string  `toml:"gamma_host"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// KalshiConfig holds the secondary provider endpoint. The provider is only
// queried when Enabled is set.
type KalshiConfig struct {
	Enabled           bool    `toml:"enabled"`
	BaseURL           string  `toml:"base_url"`
	ApiKey            string  `toml:"api_key"`
	RsaPrivateKeyPath string  `toml:"rsa_private_key_path"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters. The store
// is disabled when neither dsn nor host is set.
type SupabaseConfig struct {
	DSN           string   `toml:"dsn"`
	Host          string   `toml:"host"`
	Port          int      `toml:"port"`
	Database      string   `toml:"database"`
	User          string   `toml:"user"`
	Password      string   `toml:"password"`
	SSLMode       string   `toml:"ssl_mode"`
	PoolMaxConns  int      `toml:"pool_max_conns"`
	PoolMinConns  int      `toml:"pool_min_conns"`
	RunMigrations bool     `toml:"run_migrations"`
	Freshness     duration `toml:"freshness"`
}

// Enabled reports whether a database is configured.
func (s SupabaseConfig) Enabled() bool {
	return strings.TrimSpace(s.DSN) != "" || strings.TrimSpace(s.Host) != ""
}

// RedisConfig holds Redis connection parameters. Redis is disabled when both
// url and addr are empty.
type RedisConfig struct {
	URL        string `toml:"url"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Addr) != ""
}

// S3Config holds S3-compatible object storage parameters for sync snapshots.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig tunes the response cache.
type CacheConfig struct {
	Backend           string   `toml:"backend"`
	TTL               duration `toml:"ttl"`
	Capacity          int      `toml:"capacity"`
	MaxCacheableLimit int      `toml:"max_cacheable_limit"`
}

// SyncConfig tunes the background sync job.
type SyncConfig struct {
	Interval   duration `toml:"interval"`
	PageSize   int      `toml:"page_size"`
	MaxEvents  int      `toml:"max_events"`
	MaxMarkets int      `toml:"max_markets"`
	WriteBatch int      `toml:"write_batch"`
	LockTTL    duration `toml:"lock_ttl"`
	// Archive uploads a snapshot of every run to S3.
	Archive bool `toml:"archive"`
	// Retention is how long an unrefreshed market row is kept; zero
	// disables pruning.
	Retention     duration `toml:"retention"`
	RetentionCron string   `toml:"retention_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards the sync trigger; empty disables auth.
	APIKey             string `toml:"api_key"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Run modes.
const (
	ModeServe = "serve"
	ModeSync  = "sync"
	ModeFull  = "full"
)

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:         "https://gamma-api.polymarket.com",
			RequestsPerSecond: 10,
		},
		Kalshi: KalshiConfig{
			BaseURL:           "https://api.elections.kalshi.com/trade-api/v2",
			RequestsPerSecond: 10,
		},
		Supabase: SupabaseConfig{
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "require",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
			Freshness:     duration{5 * time.Minute},
		},
		Redis: RedisConfig{
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "marketfeed-snapshots",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		Cache: CacheConfig{
			Backend:           CacheMemory,
			TTL:               duration{2 * time.Second},
			Capacity:          10,
			MaxCacheableLimit: 1000,
		},
		Sync: SyncConfig{
			Interval:      duration{5 * time.Minute},
			PageSize:      100,
			MaxEvents:     1000,
			WriteBatch:    500,
			LockTTL:       duration{10 * time.Minute},
			Retention:     duration{7 * 24 * time.Hour},
			RetentionCron: "0 4 * * *",
		},
		Server: ServerConfig{
			Port:               8000,
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 600,
		},
		Notify: NotifyConfig{
			Events: []string{"sync.failed", "sync.recovered"},
		},
		Mode:     ModeServe,
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	ModeServe: true,
	ModeSync:  true,
	ModeFull:  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, sync, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.RequestsPerSecond < 0 {
		errs = append(errs, "polymarket: requests_per_second must be >= 0")
	}

	// Kalshi
	if c.Kalshi.Enabled && c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty when enabled")
	}

	// Supabase
	if c.Supabase.Enabled() {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 || c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must be between 0 and pool_max_conns")
		}
		if c.Supabase.Freshness.Duration <= 0 {
			errs = append(errs, "supabase: freshness must be > 0")
		}
	} else if mode == ModeSync || mode == ModeFull {
		errs = append(errs, "supabase: dsn or host is required for mode "+mode)
	}

	// Redis
	if c.Redis.Enabled() && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}
	if c.Sync.Archive && !c.S3.Enabled {
		errs = append(errs, "sync: archive requires s3.enabled")
	}

	// Cache
	switch c.Cache.Backend {
	case CacheMemory:
		if c.Cache.Capacity < 1 {
			errs = append(errs, "cache: capacity must be >= 1")
		}
	case CacheRedis:
		if !c.Redis.Enabled() {
			errs = append(errs, "cache: backend redis requires redis.url or redis.addr")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if c.Cache.TTL.Duration <= 0 {
		errs = append(errs, "cache: ttl must be > 0")
	}

	// Sync
	if mode == ModeFull && c.Sync.Interval.Duration <= 0 {
		errs = append(errs, "sync: interval must be > 0 in full mode")
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > 500 {
		errs = append(errs, fmt.Sprintf("sync: page_size must be 1-500, got %d", c.Sync.PageSize))
	}
	if c.Sync.MaxMarkets < 0 {
		errs = append(errs, "sync: max_markets must be >= 0")
	}
	if c.Sync.Retention.Duration > 0 && c.Sync.RetentionCron == "" {
		errs = append(errs, "sync: retention_cron must be set when retention is enabled")
	}

	// Server
	if mode != ModeSync {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
