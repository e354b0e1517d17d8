// Package memory provides in-process implementations of the cache, lock,
// rate limiter and signal bus interfaces for single-replica deployments
// that run without Redis.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// --------------------------------------------------------------------------
// Response cache
// --------------------------------------------------------------------------

// ResponseCache is a bounded LRU of responses with a per-entry TTL.
type ResponseCache struct {
	lru *expirable.LRU[string, domain.Response]
}

// NewResponseCache creates a ResponseCache holding at most capacity
// responses, each for ttl.
func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{lru: expirable.NewLRU[string, domain.Response](capacity, nil, ttl)}
}

// Get returns the cached response or domain.ErrCacheMiss.
func (c *ResponseCache) Get(_ context.Context, key string) (domain.Response, error) {
	resp, ok := c.lru.Get(key)
	if !ok {
		return domain.Response{}, domain.ErrCacheMiss
	}
	return resp, nil
}

// Set stores resp under key.
func (c *ResponseCache) Set(_ context.Context, key string, resp domain.Response) error {
	c.lru.Add(key, resp)
	return nil
}

// Purge drops every cached response.
func (c *ResponseCache) Purge(context.Context) error {
	c.lru.Purge()
	return nil
}

// Len reports the number of live entries.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}

// --------------------------------------------------------------------------
// Lock manager
// --------------------------------------------------------------------------

// LockManager is a process-local domain.LockManager. Locks expire after
// their TTL so a crashed holder cannot wedge the sync loop.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]lease
	now   func() time.Time
	token uint64
}

type lease struct {
	token   uint64
	expires time.Time
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: map[string]lease{}, now: time.Now}
}

// Acquire takes key for ttl or returns domain.ErrLockHeld.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if l, ok := lm.held[key]; ok && now.Before(l.expires) {
		return nil, domain.ErrLockHeld
	}
	lm.token++
	token := lm.token
	lm.held[key] = lease{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			if l, ok := lm.held[key]; ok && l.token == token {
				delete(lm.held, key)
			}
		})
	}, nil
}

// --------------------------------------------------------------------------
// Rate limiter
// --------------------------------------------------------------------------

// maxLimiterKeys bounds how many client keys are tracked at once.
const maxLimiterKeys = 10000

// RateLimiter is a process-local domain.RateLimiter: one token bucket per
// key, refilled at limit per window with a burst of limit.
type RateLimiter struct {
	buckets *expirable.LRU[string, *rate.Limiter]
	mu      sync.Mutex
}

// NewRateLimiter creates a RateLimiter. Idle buckets are forgotten after
// idle.
func NewRateLimiter(idle time.Duration) *RateLimiter {
	return &RateLimiter{buckets: expirable.NewLRU[string, *rate.Limiter](maxLimiterKeys, nil, idle)}
}

// Allow reports whether one more request for key fits.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	rl.mu.Lock()
	lim, ok := rl.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
		rl.buckets.Add(key, lim)
	}
	rl.mu.Unlock()
	return lim.Allow(), nil
}

// --------------------------------------------------------------------------
// Signal bus
// --------------------------------------------------------------------------

// SignalBus fans published payloads out to in-process subscribers. Slow
// subscribers drop messages rather than block publishers.
type SignalBus struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: map[string][]chan []byte{}}
}

// Publish delivers payload to every subscriber of channel. A trailing "*"
// in a subscription matches any suffix.
func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for pattern, subs := range b.subs {
		if !matchChannel(pattern, channel) {
			continue
		}
		for _, ch := range subs {
			select {
			case ch <- payload:
			default:
			}
		}
	}
	return nil
}

// Subscribe returns a channel of payloads for channel, closed when ctx is
// done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		close(ch)
	}()
	return ch, nil
}

func matchChannel(pattern, channel string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return pattern == channel
}

// Compile-time interface checks.
var (
	_ domain.ResponseCache = (*ResponseCache)(nil)
	_ domain.LockManager   = (*LockManager)(nil)
	_ domain.RateLimiter   = (*RateLimiter)(nil)
	_ domain.SignalBus     = (*SignalBus)(nil)
)
