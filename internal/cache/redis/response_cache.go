package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResponseCache implements domain.ResponseCache with JSON strings under a
// fixed TTL, shared by every API replica.
//
// Key schema:
//
//	marketfeed:resp:{platform|kind|sportType|week|limit|minVolume}
type ResponseCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResponseCache creates a ResponseCache backed by the given Client.
func NewResponseCache(c *Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{rdb: c.Underlying(), ttl: ttl}
}

func responseKey(key string) string { return keyPrefix + "resp:" + key }

// Get returns the cached response or domain.ErrCacheMiss.
func (rc *ResponseCache) Get(ctx context.Context, key string) (domain.Response, error) {
	data, err := rc.rdb.Get(ctx, responseKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Response{}, domain.ErrCacheMiss
		}
		return domain.Response{}, fmt.Errorf("redis: get response %s: %w", key, err)
	}

	var resp domain.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.Response{}, fmt.Errorf("redis: unmarshal response %s: %w", key, err)
	}
	return resp, nil
}

// Set stores resp under key for the cache TTL.
func (rc *ResponseCache) Set(ctx context.Context, key string, resp domain.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis: marshal response %s: %w", key, err)
	}
	if err := rc.rdb.Set(ctx, responseKey(key), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set response %s: %w", key, err)
	}
	return nil
}

// Purge drops every cached response. The sync job calls it after a
// successful run so readers see the new rows.
func (rc *ResponseCache) Purge(ctx context.Context) error {
	iter := rc.rdb.Scan(ctx, 0, responseKey("*"), 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan responses: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: purge responses: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ResponseCache = (*ResponseCache)(nil)
