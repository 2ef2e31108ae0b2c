// Package repositorycache adds cache-aside reads and paginated search to any
// Source of entities.
//
// # Overview
//
// Three pieces sit between callers and the store:
//
//   - CachedSource: decorates a Source with a read-through entity cache
//   - CursorEngine: serves "after cursor, limit" pages from cached ID lists
//   - OffsetEngine: serves "page, limit" pages from cached ID lists
//
// Entities are cached by ID with a long TTL. Searches cache only the ordered
// list of matching IDs, keyed by the fingerprint of the filter, with a short
// TTL. Pages are assembled by hydrating the IDs of the requested slice
// through the entity cache.
//
// # Basic Usage
//
//	backend, _ := cache.NewBackend(cache.DefaultConfig())
//	source := repositorycache.New[*catalog.Product](store, backend, repositorycache.DefaultConfig())
//
//	cursors := repositorycache.NewCursorEngine(source, pagination.DefaultLimits(), nil)
//	page, err := cursors.Search(ctx, filter, repositorycache.CursorRequest{Limit: 20})
//
//	offsets := repositorycache.NewOffsetEngine(source, pagination.DefaultLimits())
//	page, err := offsets.Search(ctx, filter, repositorycache.OffsetRequest{Page: 2, Limit: 20})
//
// # Resolution Tiers
//
// Each search is served by the first tier that succeeds:
//
//  1. cache: the cached ID list hydrates completely
//  2. refreshed: a live ID-only query replaces the list, then hydration is retried once
//  3. live: a full entity query against the store, bypassing the caches
//
// A cursor missing from the cached list, a failed hydration of any ID or a
// backend error all count as a miss for that tier. Lists longer than
// Config.MaxCachedIDs are never cached and go straight to the live tier.
//
// Pagination parameters are validated before the first cache access, so an
// invalid cursor, page or limit never costs any I/O.
//
// # Transaction Handling
//
// Reads that carry a running unit of work (see package uow) or a context
// marked with WithCacheBypass skip every cache and hit the store directly.
// Writes never touch the caches synchronously: Populate, Invalidate and
// FlushSearches run in the background and only log failures.
//
// # Error Handling
//
// Cache backend failures are logged at warning level and counted in
// CacheErrors; they are never returned. Store failures on the live path are
// returned wrapped with the failing step.
//
// # Metrics
//
// CacheHits and CacheMisses are labelled by layer (entity, search).
// Resolutions counts searches per mode (cursor, offset) and tier (cache,
// refreshed, live). StoreDuration observes every store call made here.
package repositorycache
