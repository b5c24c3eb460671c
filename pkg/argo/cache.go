package argo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/ocean"

	"github.com/redis/go-redis/v9"
)

// Fetcher is the contract shared by Client and CachedFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, r ocean.Region) (*ocean.Table, error)
}

// Cache is the subset of *redis.Client the fetch cache needs.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const cacheKeyPrefix = "floatchat:argo:"

// CachedFetcher memoises successful region fetches in Redis. Cache errors are
// logged and bypassed; failures are never cached.
type CachedFetcher struct {
	next   Fetcher
	cache  Cache
	ttl    time.Duration
	logger logger.ILogger
}

func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, log logger.ILogger) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: log}
}

// CacheKey identifies a region request.
func CacheKey(r ocean.Region) string {
	return fmt.Sprintf("%s%g:%g:%g:%g:%g:%g:%s:%s", cacheKeyPrefix,
		r.LonMin, r.LonMax, r.LatMin, r.LatMax, r.DepthMin, r.DepthMax, r.DateStart, r.DateEnd)
}

func (c *CachedFetcher) Fetch(ctx context.Context, r ocean.Region) (*ocean.Table, error) {
	key := CacheKey(r)

	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t ocean.Table
		jsonErr := json.Unmarshal(raw, &t)
		if jsonErr == nil {
			c.logger.Debug("ARGO", "Cache hit", map[string]interface{}{"key": key, "rows": t.Len()})
			return &t, nil
		}
		c.logger.Warn("ARGO", "Discarding unreadable cache entry", map[string]interface{}{"key": key, "error": jsonErr.Error()})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("ARGO", "Cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	t, err := c.next.Fetch(ctx, r)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(t)
	if err != nil {
		// non-finite cells cannot be cached as JSON; serve them uncached
		c.logger.Warn("ARGO", "Table not cacheable", map[string]interface{}{"key": key, "error": err.Error()})
		return t, nil
	}
	if err := c.cache.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("ARGO", "Cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return t, nil
}
