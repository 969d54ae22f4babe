package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vitibrasil/vitibrasil-api/internal/metrics"
)

// ComputeFunc produces the value to cache on a miss.
type ComputeFunc func(ctx context.Context) (any, error)

// Cache decorates expensive computations with tagged TTL caching and
// at-most-one concurrent execution per key.
type Cache struct {
	provider Provider
	group    singleflight.Group
	logger   *zap.Logger
	now      func() time.Time
}

// New wraps a provider.
func New(provider Provider, logger *zap.Logger) *Cache {
	return &Cache{provider: provider, logger: logger, now: time.Now}
}

// GetOrCompute returns the cached value for key, or runs fn exactly
// once among concurrent callers of the same key, stores the result and
// returns it. Provider failures are logged and treated as a miss or a
// lost write; they never surface to the caller.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, tags []string, fn ComputeFunc) (any, error) {
	if value, ok := c.lookup(key); ok {
		return value, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		// A waiter may have stored the value while we queued for the
		// flight; re-check before computing.
		if value, ok := c.lookup(key); ok {
			return value, nil
		}
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value, ttl, tags)
		return value, nil
	})
	return value, err
}

// InvalidateTag removes every entry carrying the tag and reports how
// many were dropped. Fail-open: provider errors count as zero.
func (c *Cache) InvalidateTag(tag string) int {
	count, err := c.provider.InvalidateTag(tag)
	if err != nil {
		c.logger.Warn("cache tag invalidation failed", zap.String("tag", tag), zap.Error(err))
		return 0
	}
	return count
}

// Clear removes all entries.
func (c *Cache) Clear() {
	if err := c.provider.Clear(); err != nil {
		c.logger.Warn("cache clear failed", zap.Error(err))
	}
}

func (c *Cache) lookup(key string) (any, bool) {
	entry, ok, err := c.provider.Get(key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
		metrics.ObserveCacheEvent("error")
		return nil, false
	}
	if !ok {
		metrics.ObserveCacheEvent("miss")
		return nil, false
	}
	metrics.ObserveCacheEvent("hit")
	return entry.Value, true
}

func (c *Cache) store(key string, value any, ttl time.Duration, tags []string) {
	entry := Entry{Value: value, CreatedAt: c.now(), TTL: ttl, Tags: tags}
	if err := c.provider.Set(key, entry); err != nil {
		c.logger.Warn("cache write failed, result served uncached", zap.String("key", key), zap.Error(err))
	}
}
