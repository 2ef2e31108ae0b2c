package repositorycache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/pagination"
	"github.com/goliatone/go-catalog-cache/query"
)

// listCache holds the ordered ID list of a filter and hydrates slices of it.
// Lists are always replaced wholesale.
type listCache[T Entity] struct {
	backend cache.Backend
	keys    cache.KeyBuilder
	ttl     time.Duration
	hydrate func(ctx context.Context, id string) (T, error)
	logger  zerolog.Logger
	mode    string
}

func (l *listCache[T]) ids(ctx context.Context, filter query.Filter) ([]string, bool) {
	key := l.keys.SearchKey(filter)

	ids, found, err := cache.GetValue[[]string](ctx, l.backend, key)
	if err != nil {
		op := "get"
		var decodeErr *cache.DecodeError
		if errors.As(err, &decodeErr) {
			op = "decode"
		}
		CacheErrors.WithLabelValues(op).Inc()
		CacheMisses.WithLabelValues(layerSearch).Inc()
		l.logger.Warn().Err(err).Str("op", op).Str("mode", l.mode).Str("key", key).Msg("search cache get failed")
		return nil, false
	}
	if !found {
		CacheMisses.WithLabelValues(layerSearch).Inc()
		return nil, false
	}

	CacheHits.WithLabelValues(layerSearch).Inc()
	return ids, true
}

// Set stores ids for filter. Failures are logged and swallowed.
func (l *listCache[T]) Set(ctx context.Context, filter query.Filter, ids []string) {
	key := l.keys.SearchKey(filter)
	if ids == nil {
		ids = []string{}
	}
	if err := cache.SetValue(ctx, l.backend, key, ids, l.ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		l.logger.Warn().Err(err).Str("mode", l.mode).Str("key", key).Int("ids", len(ids)).Msg("search cache set failed")
	}
}

// hydrateAll resolves every id concurrently. A single failure fails the
// whole slice so that a partial page is never served.
func (l *listCache[T]) hydrateAll(ctx context.Context, filter query.Filter, ids []string) ([]T, bool) {
	out := make([]T, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			entity, err := l.hydrate(gctx, id)
			if err != nil {
				return err
			}
			out[i] = entity
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.logger.Warn().
			Err(err).
			Str("mode", l.mode).
			Str("key", l.keys.SearchKey(filter)).
			Int("ids", len(ids)).
			Msg("search cache hydration failed")
		return nil, false
	}
	return out, true
}

// CursorSearchCache serves cursor pages from cached ID lists.
type CursorSearchCache[T Entity] struct {
	listCache[T]
}

// Get returns the page after cursor, or false on any miss. A cursor that is
// not in the cached list is a miss: resuming elsewhere could skip results.
func (c *CursorSearchCache[T]) Get(ctx context.Context, filter query.Filter, cursor string, limit int) (pagination.CursorPage[T], bool) {
	ids, ok := c.ids(ctx, filter)
	if !ok {
		return pagination.CursorPage[T]{}, false
	}

	start := 0
	if cursor != "" {
		start = indexOf(ids, cursor) + 1
		if start == 0 {
			c.logger.Debug().Str("cursor", cursor).Msg("cursor not in cached list")
			return pagination.CursorPage[T]{}, false
		}
	}

	end := min(start+limit+1, len(ids))
	entities, ok := c.hydrateAll(ctx, filter, ids[start:end])
	if !ok {
		return pagination.CursorPage[T]{}, false
	}

	return pagination.BuildCursorPage(cursor, entities, limit), true
}

// OffsetSearchCache serves numbered pages from cached ID lists. The total
// count is the cached list length.
type OffsetSearchCache[T Entity] struct {
	listCache[T]
}

// Get returns the requested page, clamped to the available pages, or false
// on any miss.
func (c *OffsetSearchCache[T]) Get(ctx context.Context, filter query.Filter, page, limit int) (pagination.OffsetPage[T], bool) {
	ids, ok := c.ids(ctx, filter)
	if !ok {
		return pagination.OffsetPage[T]{}, false
	}

	total := len(ids)
	page = pagination.ClampPage(page, total, limit)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	entities, ok := c.hydrateAll(ctx, filter, ids[start:end])
	if !ok {
		return pagination.OffsetPage[T]{}, false
	}

	return pagination.BuildOffsetPage(entities, total, page, limit), true
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
