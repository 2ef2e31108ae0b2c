package bunstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/orders"
)

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID           string    `bun:"id,pk,type:varchar(36)"`
	Artist       string    `bun:"artist,notnull,type:varchar(200),unique:products_identity"`
	Album        string    `bun:"album,notnull,type:varchar(200),unique:products_identity"`
	Format       string    `bun:"format,notnull,type:varchar(32),unique:products_identity"`
	Category     string    `bun:"category,notnull,type:varchar(32)"`
	Price        float64   `bun:"price,notnull"`
	Qty          int       `bun:"qty,notnull"`
	MBID         string    `bun:"mbid,type:varchar(64)"`
	Tracklist    []string  `bun:"tracklist"`
	SearchTokens []string  `bun:"search_tokens"`
	Created      time.Time `bun:"created,notnull"`
	LastModified time.Time `bun:"last_modified,notnull"`
}

type tokenRow struct {
	bun.BaseModel `bun:"table:product_tokens,alias:t"`

	ProductID string `bun:"product_id,pk,type:varchar(36)"`
	Token     string `bun:"token,pk,type:varchar(200)"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           uuid.UUID `bun:"id,pk,type:varchar(36)"`
	ProductID    string    `bun:"product_id,notnull,type:varchar(36)"`
	Qty          int       `bun:"qty,notnull"`
	Created      time.Time `bun:"created,notnull"`
	LastModified time.Time `bun:"last_modified,notnull"`
}

func toProductRow(p catalog.Product) *productRow {
	return &productRow{
		ID:           p.ID,
		Artist:       p.Artist,
		Album:        p.Album,
		Format:       string(p.Format),
		Category:     string(p.Category),
		Price:        p.Price,
		Qty:          p.Qty,
		MBID:         p.MBID,
		Tracklist:    p.Tracklist,
		SearchTokens: p.SearchTokens,
		Created:      p.Created,
		LastModified: p.LastModified,
	}
}

func (r *productRow) toProduct() catalog.Product {
	return catalog.Product{
		ID:           r.ID,
		Artist:       r.Artist,
		Album:        r.Album,
		Format:       catalog.Format(r.Format),
		Category:     catalog.Category(r.Category),
		Price:        r.Price,
		Qty:          r.Qty,
		MBID:         r.MBID,
		Tracklist:    r.Tracklist,
		SearchTokens: r.SearchTokens,
		Created:      r.Created.UTC(),
		LastModified: r.LastModified.UTC(),
	}
}

func tokenRows(p catalog.Product) []tokenRow {
	rows := make([]tokenRow, len(p.SearchTokens))
	for i, token := range p.SearchTokens {
		rows[i] = tokenRow{ProductID: p.ID, Token: token}
	}
	return rows
}

func toOrderRow(o orders.Order) (*orderRow, error) {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return nil, err
	}
	return &orderRow{
		ID:           id,
		ProductID:    o.ProductID,
		Qty:          o.Qty,
		Created:      o.Created,
		LastModified: o.LastModified,
	}, nil
}

func (r *orderRow) toOrder() orders.Order {
	return orders.Order{
		ID:           r.ID.String(),
		ProductID:    r.ProductID,
		Qty:          r.Qty,
		Created:      r.Created.UTC(),
		LastModified: r.LastModified.UTC(),
	}
}
