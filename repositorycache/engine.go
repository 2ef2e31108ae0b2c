package repositorycache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/pagination"
	"github.com/goliatone/go-catalog-cache/query"
)

// CursorRequest is a forward page request. Zero Limit uses the default.
type CursorRequest struct {
	Cursor string
	Limit  int
}

// OffsetRequest is a numbered page request. Zero Page is the first page and
// zero Limit uses the default.
type OffsetRequest struct {
	Page  int
	Limit int
}

// refresher reloads an ID list from the source into a list cache.
type refresher[T Entity] struct {
	source *CachedSource[T]
	list   *listCache[T]
	max    int
	logger zerolog.Logger
}

// refresh runs the live ID-only query and caches the result. It reports
// false when the list exceeded the cap and was not cached.
func (r refresher[T]) refresh(ctx context.Context, filter query.Filter) (bool, error) {
	ids, err := r.source.FindIDs(ctx, filter, r.max+1)
	if err != nil {
		return false, fmt.Errorf("find ids: %w", err)
	}
	if len(ids) > r.max {
		r.logger.Debug().Int("max", r.max).Str("mode", r.list.mode).Msg("result set too large to cache")
		return false, nil
	}

	r.list.Set(ctx, filter, ids)
	return true, nil
}

func newListCache[T Entity](source *CachedSource[T], mode string) listCache[T] {
	return listCache[T]{
		backend: source.backend,
		keys:    source.keys,
		ttl:     source.cfg.SearchTTL,
		hydrate: source.FindByID,
		logger:  source.logger,
		mode:    mode,
	}
}

// CursorEngine serves cursor pages: cached list, then a refreshed list,
// then a live query that bypasses the cache.
type CursorEngine[T Entity] struct {
	source    *CachedSource[T]
	cache     *CursorSearchCache[T]
	refresher refresher[T]
	limits    pagination.Limits
	validate  pagination.CursorValidator
}

// NewCursorEngine builds a cursor engine on source. A nil validator accepts
// UUIDs and lowercases them.
func NewCursorEngine[T Entity](source *CachedSource[T], limits pagination.Limits, validate pagination.CursorValidator) *CursorEngine[T] {
	c := &CursorSearchCache[T]{listCache: newListCache(source, modeCursor)}
	return &CursorEngine[T]{
		source:    source,
		cache:     c,
		refresher: refresher[T]{source: source, list: &c.listCache, max: source.cfg.MaxCachedIDs, logger: source.logger},
		limits:    limits,
		validate:  validate,
	}
}

// Cache exposes the cursor search cache.
func (e *CursorEngine[T]) Cache() *CursorSearchCache[T] {
	return e.cache
}

// Search returns the page of filter matches after req.Cursor. Parameters
// are validated before any cache or store access.
func (e *CursorEngine[T]) Search(ctx context.Context, filter query.Filter, req CursorRequest) (pagination.CursorPage[T], error) {
	limit, err := e.limits.Resolve(req.Limit)
	if err != nil {
		return pagination.CursorPage[T]{}, err
	}
	cursor, err := pagination.ParseCursor(req.Cursor, e.validate)
	if err != nil {
		return pagination.CursorPage[T]{}, err
	}

	if !shouldBypass(ctx) {
		if page, ok := e.cache.Get(ctx, filter, cursor, limit); ok {
			Resolutions.WithLabelValues(modeCursor, tierCache).Inc()
			return page, nil
		}

		cached, err := e.refresher.refresh(ctx, filter)
		if err != nil {
			return pagination.CursorPage[T]{}, err
		}
		if cached {
			if page, ok := e.cache.Get(ctx, filter, cursor, limit); ok {
				Resolutions.WithLabelValues(modeCursor, tierRefreshed).Inc()
				return page, nil
			}
		}
	}

	return e.live(ctx, filter, cursor, limit)
}

func (e *CursorEngine[T]) live(ctx context.Context, filter query.Filter, cursor string, limit int) (pagination.CursorPage[T], error) {
	items, err := e.source.Find(ctx, filter.WithIDAfter(cursor), 0, limit+1)
	if err != nil {
		return pagination.CursorPage[T]{}, fmt.Errorf("cursor search: %w", err)
	}

	Resolutions.WithLabelValues(modeCursor, tierLive).Inc()
	return pagination.BuildCursorPage(cursor, items, limit), nil
}

// OffsetEngine serves numbered pages with the same three tiers as
// CursorEngine.
type OffsetEngine[T Entity] struct {
	source    *CachedSource[T]
	cache     *OffsetSearchCache[T]
	refresher refresher[T]
	limits    pagination.Limits
}

// NewOffsetEngine builds an offset engine on source.
func NewOffsetEngine[T Entity](source *CachedSource[T], limits pagination.Limits) *OffsetEngine[T] {
	c := &OffsetSearchCache[T]{listCache: newListCache(source, modeOffset)}
	return &OffsetEngine[T]{
		source:    source,
		cache:     c,
		refresher: refresher[T]{source: source, list: &c.listCache, max: source.cfg.MaxCachedIDs, logger: source.logger},
		limits:    limits,
	}
}

// Cache exposes the offset search cache.
func (e *OffsetEngine[T]) Cache() *OffsetSearchCache[T] {
	return e.cache
}

// Search returns page req.Page of filter matches. Pages past the end are
// clamped to the last page.
func (e *OffsetEngine[T]) Search(ctx context.Context, filter query.Filter, req OffsetRequest) (pagination.OffsetPage[T], error) {
	limit, err := e.limits.Resolve(req.Limit)
	if err != nil {
		return pagination.OffsetPage[T]{}, err
	}
	page, _, err := pagination.ComputeOffset(req.Page, limit)
	if err != nil {
		return pagination.OffsetPage[T]{}, err
	}

	if !shouldBypass(ctx) {
		if out, ok := e.cache.Get(ctx, filter, page, limit); ok {
			Resolutions.WithLabelValues(modeOffset, tierCache).Inc()
			return out, nil
		}

		cached, err := e.refresher.refresh(ctx, filter)
		if err != nil {
			return pagination.OffsetPage[T]{}, err
		}
		if cached {
			if out, ok := e.cache.Get(ctx, filter, page, limit); ok {
				Resolutions.WithLabelValues(modeOffset, tierRefreshed).Inc()
				return out, nil
			}
		}
	}

	return e.live(ctx, filter, page, limit)
}

func (e *OffsetEngine[T]) live(ctx context.Context, filter query.Filter, page, limit int) (pagination.OffsetPage[T], error) {
	total, err := e.source.Count(ctx, filter)
	if err != nil {
		return pagination.OffsetPage[T]{}, fmt.Errorf("offset search count: %w", err)
	}

	page = pagination.ClampPage(page, total, limit)
	items, err := e.source.Find(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return pagination.OffsetPage[T]{}, fmt.Errorf("offset search: %w", err)
	}

	Resolutions.WithLabelValues(modeOffset, tierLive).Inc()
	return pagination.BuildOffsetPage(items, total, page, limit), nil
}
