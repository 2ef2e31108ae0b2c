package repositorycache

import (
	"context"

	"github.com/goliatone/go-catalog-cache/uow"
)

type cacheBypassContextKey struct{}

// WithCacheBypass marks ctx so that reads go straight to the store.
func WithCacheBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheBypassContextKey{}, true)
}

// shouldBypass is true inside a unit of work, where reads must observe the
// transaction's own writes, or when the caller asked for it.
func shouldBypass(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if uow.InTransaction(ctx) {
		return true
	}
	bypass, _ := ctx.Value(cacheBypassContextKey{}).(bool)
	return bypass
}
