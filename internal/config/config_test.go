package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate in serve mode: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "full"

[supabase]
host = "db.internal"
freshness = "2m"

[sync]
interval = "90s"
max_markets = 3000

[cache]
backend = "memory"
ttl = "5s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MARKETFEED_SYNC_MAX_MARKETS", "1500")
	t.Setenv("MARKETFEED_SERVER_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("MARKETFEED_SERVER_PORT", "not-a-number")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeFull || cfg.Supabase.Host != "db.internal" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Supabase.Freshness.Duration != 2*time.Minute || cfg.Sync.Interval.Duration != 90*time.Second {
		t.Errorf("durations = %v / %v", cfg.Supabase.Freshness, cfg.Sync.Interval)
	}
	if cfg.Sync.MaxMarkets != 1500 {
		t.Errorf("env override not applied: max_markets = %d", cfg.Sync.MaxMarkets)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("cors origins = %q", got)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("malformed env must keep the default port, got %d", cfg.Server.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.Capacity != 10 || cfg.Cache.MaxCacheableLimit != 1000 {
		t.Errorf("cache defaults lost: %+v", cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mode = "trade" }, "unknown mode"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log_level"},
		{"sync needs database", func(c *Config) { c.Mode = ModeSync }, "supabase: dsn or host"},
		{"redis cache needs redis", func(c *Config) { c.Cache.Backend = CacheRedis }, "backend redis requires"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown backend"},
		{"archive needs s3", func(c *Config) { c.Sync.Archive = true }, "archive requires s3"},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL.Duration = 0 }, "cache: ttl must be > 0"},
		{"negative cache ttl", func(c *Config) { c.Cache.TTL.Duration = -time.Second }, "cache: ttl must be > 0"},
		{"page size", func(c *Config) { c.Sync.PageSize = 0 }, "page_size"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server: port"},
		{"pool bounds", func(c *Config) {
			c.Supabase.DSN = "postgres://x"
			c.Supabase.PoolMinConns = 20
		}, "pool_min_conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateSyncModeSkipsServerPort(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = ModeSync
	cfg.Supabase.DSN = "postgres://x"
	cfg.Server.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Supabase.DSN = "postgres://user:pw@db/feed"
	cfg.Redis.URL = "redis://:pw@cache:6379"
	cfg.Server.APIKey = "k"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	out := RedactedConfig(&cfg)
	for name, v := range map[string]string{
		"dsn":     out.Supabase.DSN,
		"redis":   out.Redis.URL,
		"api key": out.Server.APIKey,
		"discord": out.Notify.DiscordWebhookURL,
	} {
		if v != redacted {
			t.Errorf("%s = %q, want redacted", name, v)
		}
	}
	if out.Supabase.Password != "" {
		t.Error("empty secrets must stay empty")
	}
	if cfg.Supabase.DSN == redacted {
		t.Error("original config mutated")
	}

	out.Server.CORSOrigins[0] = "mutated"
	if cfg.Server.CORSOrigins[0] == "mutated" {
		t.Error("slices shared with the original")
	}
}
