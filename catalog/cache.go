package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bundlewise/bundle-service/app/middleware"
)

const cacheKeyPrefix = "catalog:product:"

// Cache is the key-value store behind CachedClient, the Get/Set subset of
// the go-redis client. Satisfied by *redis.Client.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedClient is a read-through snapshot cache in front of another Client.
// Cache failures fall through to the inner client and never fail a lookup;
// only successful lookups are cached.
type CachedClient struct {
	inner  Client
	redis  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedClient(inner Client, rdb Cache, ttl time.Duration, logger *zap.Logger) *CachedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClient{
		inner:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedClient) LookupProduct(ctx context.Context, productID string) (*ProductSnapshot, error) {
	key := cacheKeyPrefix + productID

	val, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var snapshot ProductSnapshot
		if err := json.Unmarshal([]byte(val), &snapshot); err == nil {
			middleware.CatalogCacheHitsTotal.WithLabelValues("hit").Inc()
			return &snapshot, nil
		}
		c.logger.Warn("cached catalog snapshot unreadable", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	middleware.CatalogCacheHitsTotal.WithLabelValues("miss").Inc()

	snapshot, err := c.inner.LookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return snapshot, nil
}
