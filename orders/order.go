// Package orders creates orders that consume catalog stock.
package orders

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/catalog"
)

// Order is a placed order for a quantity of one product.
type Order struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"productId"`
	Qty          int       `json:"qty"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

// CreateOrder is the input of Service.Create.
type CreateOrder struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

func (c CreateOrder) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ProductID, validation.Required),
		validation.Field(&c.Qty, validation.Required, validation.Min(1)),
	)
}

// Store persists orders. InsertOrder joins the unit of work in ctx.
type Store interface {
	InsertOrder(ctx context.Context, o Order) error
	// FindOrder returns errs.NotFound when the order is absent.
	FindOrder(ctx context.Context, id string) (Order, error)
}

// Stock takes units out of the catalog.
type Stock interface {
	DecreaseQuantity(ctx context.Context, id string, qty int) (catalog.Product, error)
}
