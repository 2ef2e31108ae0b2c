package repositorycache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/cache"
)

// EntityCache stores hydrated entities by ID. Every operation is best
// effort: backend failures are logged and turn into misses or no-ops.
type EntityCache[T Entity] struct {
	backend cache.Backend
	keys    cache.KeyBuilder
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewEntityCache builds an entity cache on backend.
func NewEntityCache[T Entity](backend cache.Backend, keys cache.KeyBuilder, ttl time.Duration, logger zerolog.Logger) *EntityCache[T] {
	return &EntityCache[T]{backend: backend, keys: keys, ttl: ttl, logger: logger}
}

// Get returns the cached entity for id.
func (c *EntityCache[T]) Get(ctx context.Context, id string) (T, bool) {
	key := c.keys.EntityKey(id)

	value, found, err := cache.GetValue[T](ctx, c.backend, key)
	if err != nil {
		c.fail("get", key, err)
		CacheMisses.WithLabelValues(layerEntity).Inc()
		var zero T
		return zero, false
	}
	if !found {
		CacheMisses.WithLabelValues(layerEntity).Inc()
		return value, false
	}

	CacheHits.WithLabelValues(layerEntity).Inc()
	return value, true
}

// Set stores entity under its own ID.
func (c *EntityCache[T]) Set(ctx context.Context, entity T) {
	key := c.keys.EntityKey(entity.EntityID())
	if err := cache.SetValue(ctx, c.backend, key, entity, c.ttl); err != nil {
		c.fail("set", key, err)
	}
}

// Delete drops the entry for id.
func (c *EntityCache[T]) Delete(ctx context.Context, id string) {
	key := c.keys.EntityKey(id)
	if err := c.backend.Delete(ctx, key); err != nil {
		c.fail("delete", key, err)
	}
}

func (c *EntityCache[T]) fail(op, key string, err error) {
	var decodeErr *cache.DecodeError
	if errors.As(err, &decodeErr) {
		op = "decode"
	}
	CacheErrors.WithLabelValues(op).Inc()
	c.logger.Warn().Err(err).Str("op", op).Str("key", key).Msg("entity cache operation failed")
}
