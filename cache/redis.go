package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a Store backend on top of go-redis, for engines sharing a
// cache across multiple process instances. Values are JSON-encoded; TTLs
// are delegated to Redis's own expiry rather than tracked client-side.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	// timeout bounds each Redis round-trip so a stalled cache never blocks
	// the retry loop that calls it indefinitely.
	timeout time.Duration
}

// NewRedisStore wraps an existing *redis.Client. keyPrefix namespaces keys
// so multiple engines can share a Redis instance. A nil logger defaults to
// a no-op logger.
func NewRedisStore(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:  client,
		prefix:  keyPrefix,
		logger:  logger.With(zap.String("component", "cache_redis")),
		timeout: 3 * time.Second,
	}
}

func (r *RedisStore) fullKey(key string) string { return r.prefix + key }

// Get fetches and JSON-decodes the value stored under key.
func (r *RedisStore) Get(key string) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		r.logger.Warn("cache value undecodable, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return value, true
}

// Set JSON-encodes value and stores it with the given TTL. A zero ttl
// means no expiry.
func (r *RedisStore) Set(key string, value any, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("cache value unencodable, skipping set", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.fullKey(key), raw, ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key.
func (r *RedisStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		r.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
