package domain

import (
	"context"
	"time"
)

// ResponseCache holds finished GET /markets responses for a short TTL.
// Get returns ErrCacheMiss when the key is absent or expired.
type ResponseCache interface {
	Get(ctx context.Context, key string) (Response, error)
	Set(ctx context.Context, key string, resp Response) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub messaging.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ChannelSyncCompleted carries SyncReport JSON after every sync run.
const ChannelSyncCompleted = "sync.completed"

// SyncReport summarizes one sync run.
type SyncReport struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Fetched    int           `json:"fetched"`
	Stored     int           `json:"stored"`
	Events     int           `json:"events"`
	Categories int           `json:"categories"`
	Archived   string        `json:"archived,omitempty"`
}
