package repositorycache

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/query"
)

// CachedSource decorates a Source with a read-through entity cache. List
// reads pass through to the base source; the pagination engines cache them.
type CachedSource[T Entity] struct {
	base     Source[T]
	backend  cache.Backend
	keys     cache.KeyBuilder
	entities *EntityCache[T]
	cfg      Config
	logger   zerolog.Logger
	spawn    func(func())
}

var _ Source[Entity] = (*CachedSource[Entity])(nil)

// New wraps base with an entity cache stored in backend.
func New[T Entity](base Source[T], backend cache.Backend, cfg Config, opts ...Option) *CachedSource[T] {
	o := buildOptions(opts)

	if cfg.Namespace == "" {
		cfg.Namespace = namespaceFor[T]()
	}
	keys := cache.NewKeyBuilder(cfg.Namespace)
	logger := o.logger.With().Str("namespace", cfg.Namespace).Logger()

	return &CachedSource[T]{
		base:     base,
		backend:  backend,
		keys:     keys,
		entities: NewEntityCache[T](backend, keys, cfg.EntityTTL, logger),
		cfg:      cfg,
		logger:   logger,
		spawn:    o.spawn,
	}
}

// Keys returns the key builder of this source's namespace.
func (c *CachedSource[T]) Keys() cache.KeyBuilder {
	return c.keys
}

// FindByID serves id from the entity cache, reading through to the base
// source on a miss. The cache is populated asynchronously.
func (c *CachedSource[T]) FindByID(ctx context.Context, id string) (T, error) {
	if shouldBypass(ctx) {
		return c.base.FindByID(ctx, id)
	}

	if entity, ok := c.entities.Get(ctx, id); ok {
		return entity, nil
	}

	entity, err := timed(ctx, c.logger, c.cfg.SlowQueryThreshold, "find_by_id", func(ctx context.Context) (T, error) {
		return c.base.FindByID(ctx, id)
	})
	if err != nil {
		return entity, err
	}

	c.Populate(ctx, entity)
	return entity, nil
}

// FindIDs passes through to the base source.
func (c *CachedSource[T]) FindIDs(ctx context.Context, filter query.Filter, limit int) ([]string, error) {
	return timed(ctx, c.logger, c.cfg.SlowQueryThreshold, "find_ids", func(ctx context.Context) ([]string, error) {
		return c.base.FindIDs(ctx, filter, limit)
	})
}

// Find passes through to the base source.
func (c *CachedSource[T]) Find(ctx context.Context, filter query.Filter, skip, limit int) ([]T, error) {
	return timed(ctx, c.logger, c.cfg.SlowQueryThreshold, "find", func(ctx context.Context) ([]T, error) {
		return c.base.Find(ctx, filter, skip, limit)
	})
}

// Count passes through to the base source.
func (c *CachedSource[T]) Count(ctx context.Context, filter query.Filter) (int, error) {
	return timed(ctx, c.logger, c.cfg.SlowQueryThreshold, "count", func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, filter)
	})
}

// Populate writes entity to the cache without blocking the caller.
func (c *CachedSource[T]) Populate(ctx context.Context, entity T) {
	detached := context.WithoutCancel(ctx)
	c.spawn(func() {
		c.entities.Set(detached, entity)
	})
}

// Invalidate drops the cached entity for id without blocking the caller.
func (c *CachedSource[T]) Invalidate(ctx context.Context, id string) {
	detached := context.WithoutCancel(ctx)
	c.spawn(func() {
		c.entities.Delete(detached, id)
	})
}

// FlushSearches drops every cached ID list of the namespace. Backends
// without range deletes leave the lists to expire.
func (c *CachedSource[T]) FlushSearches(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	c.spawn(func() {
		if err := cache.DeletePrefix(detached, c.backend, c.keys.SearchPrefix()); err != nil {
			c.logger.Debug().Err(err).Msg("search cache flush skipped")
		}
	})
}
