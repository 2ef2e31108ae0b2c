package repositorycache

import (
	"context"

	"github.com/goliatone/go-catalog-cache/query"
)

// Entity is anything with a stable string identifier. IDs must sort in
// insertion order so that ascending ID order is a stable pagination order.
type Entity interface {
	EntityID() string
}

// Source is the authoritative store behind the caches.
type Source[T Entity] interface {
	// FindIDs returns matching IDs in ascending order. limit <= 0 means no limit.
	FindIDs(ctx context.Context, filter query.Filter, limit int) ([]string, error)
	// FindByID returns errs.NotFound when the entity is absent.
	FindByID(ctx context.Context, id string) (T, error)
	// Find returns matching entities in ascending ID order.
	Find(ctx context.Context, filter query.Filter, skip, limit int) ([]T, error)
	Count(ctx context.Context, filter query.Filter) (int, error)
}
