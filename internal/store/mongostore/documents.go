package mongostore

import (
	"time"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/orders"
)

type productDoc struct {
	ID           string    `bson:"_id"`
	Artist       string    `bson:"artist"`
	Album        string    `bson:"album"`
	Format       string    `bson:"format"`
	Category     string    `bson:"category"`
	Price        float64   `bson:"price"`
	Qty          int       `bson:"qty"`
	MBID         string    `bson:"mbid,omitempty"`
	Tracklist    []string  `bson:"tracklist"`
	SearchTokens []string  `bson:"searchTokens"`
	Created      time.Time `bson:"created"`
	LastModified time.Time `bson:"lastModified"`
}

func toProductDoc(p catalog.Product) productDoc {
	return productDoc{
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

// toProduct restores UTC times; the driver decodes dates in local time.
func (d productDoc) toProduct() catalog.Product {
	return catalog.Product{
		ID:           d.ID,
		Artist:       d.Artist,
		Album:        d.Album,
		Format:       catalog.Format(d.Format),
		Category:     catalog.Category(d.Category),
		Price:        d.Price,
		Qty:          d.Qty,
		MBID:         d.MBID,
		Tracklist:    d.Tracklist,
		SearchTokens: d.SearchTokens,
		Created:      d.Created.UTC(),
		LastModified: d.LastModified.UTC(),
	}
}

type orderDoc struct {
	ID           string    `bson:"_id"`
	ProductID    string    `bson:"productId"`
	Qty          int       `bson:"qty"`
	Created      time.Time `bson:"created"`
	LastModified time.Time `bson:"lastModified"`
}

func toOrderDoc(o orders.Order) orderDoc {
	return orderDoc{
		ID:           o.ID,
		ProductID:    o.ProductID,
		Qty:          o.Qty,
		Created:      o.Created,
		LastModified: o.LastModified,
	}
}

func (d orderDoc) toOrder() orders.Order {
	return orders.Order{
		ID:           d.ID,
		ProductID:    d.ProductID,
		Qty:          d.Qty,
		Created:      d.Created.UTC(),
		LastModified: d.LastModified.UTC(),
	}
}
