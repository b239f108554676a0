package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/classifieds-api/pkg/logger"
	"github.com/d60-Lab/classifieds-api/pkg/metrics"
)

// Cache is a JSON cache-aside layer over Redis. A nil *Cache disables caching.
// Redis errors degrade to a miss; they never fail the read.
type Cache struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Remember returns the cached value for key, or calls load and caches its result for ttl.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.client == nil || ttl <= 0 {
		return load(ctx)
	}

	ns := namespace(key)
	full := c.key(key)
	if data, err := c.client.Get(ctx, full).Bytes(); err == nil {
		var out T
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			metrics.CacheHits.WithLabelValues(ns).Inc()
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("cache get failed", zap.String("key", full), zap.Error(err))
	}
	metrics.CacheMisses.WithLabelValues(ns).Inc()

	val, err := load(ctx)
	if err != nil {
		return val, err
	}
	if payload, err := json.Marshal(val); err == nil {
		if err := c.client.Set(ctx, full, payload, ttl).Err(); err != nil {
			logger.Warn("cache set failed", zap.String("key", full), zap.Error(err))
		}
	}
	return val, nil
}

// Forget deletes keys.
func (c *Cache) Forget(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
