package chunkembed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisCacheKeyPrefix mirrors the "embcache:" prefix cognitive-microservice.go
// uses for its embedding cache entries.
const redisCacheKeyPrefix = "embcache:"

// redisCacheTTL matches the 24h TTL cognitive-microservice.go sets on its
// embedding cache entries.
const redisCacheTTL = 24 * time.Hour

// RedisCache is the documented later swap for the on-disk embedding cache
// (§9 "Redis with TTL is the intended later swap"), grounded on
// cognitive-microservice.go's rdb.Get/rdb.Set("embcache:"+hash, ..., 24h)
// pattern. The cache interface carries no caller context, so lookups/writes
// run inline from Embed under their own 2s context.Background() deadline
// rather than the caller's.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache builds a RedisCache against an already-configured client.
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) get(hash string) ([]float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, redisCacheKeyPrefix+hash).Result()
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}
	return entry.Embedding, true
}

// put is best-effort; failures are logged, never surfaced, per §4.4 "Cache
// write failures are non-fatal".
func (c *RedisCache) put(entry cacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("chunkembed.redis_cache_marshal_failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, redisCacheKeyPrefix+entry.Hash, data, redisCacheTTL).Err(); err != nil {
		c.logger.Warn("chunkembed.redis_cache_write_failed", zap.Error(err))
	}
}
