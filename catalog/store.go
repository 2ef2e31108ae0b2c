package catalog

import (
	"context"

	"github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/uow"
)

// Store is the authoritative product store. Writes join the unit of work
// carried by ctx when there is one.
type Store interface {
	repositorycache.Source[Product]
	uow.Transactor

	// Insert returns errs.Conflict when the (artist, album, format) identity exists.
	Insert(ctx context.Context, p Product) error
	// Update writes every field of p except Qty, which only
	// ConditionalDecrement changes, and returns the stored product.
	// errs.NotFound when absent, errs.Conflict on identity collisions.
	Update(ctx context.Context, p Product) (Product, error)
	// ConditionalDecrement subtracts qty from the product's stock only if
	// the stock is at least qty, as a single atomic store operation. ok is
	// false when the product is absent or the condition failed.
	ConditionalDecrement(ctx context.Context, id string, qty int) (updated Product, ok bool, err error)
}
