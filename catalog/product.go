package catalog

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Format of a catalog product.
type Format string

const (
	FormatVinyl    Format = "Vinyl"
	FormatCD       Format = "CD"
	FormatCassette Format = "Cassette"
)

// Formats lists the accepted formats.
var Formats = []any{FormatVinyl, FormatCD, FormatCassette}

// Category of a catalog product.
type Category string

const (
	CategoryRock        Category = "Rock"
	CategoryJazz        Category = "Jazz"
	CategoryAlternative Category = "Alternative"
	CategoryClassical   Category = "Classical"
	CategoryPop         Category = "Pop"
)

// Categories lists the accepted categories.
var Categories = []any{CategoryRock, CategoryJazz, CategoryAlternative, CategoryClassical, CategoryPop}

// Token source fields, in the order Generate expects their values.
const (
	FieldArtist   = "artist"
	FieldAlbum    = "album"
	FieldCategory = "category"
	FieldFormat   = "format"
)

// Filterable field names understood by every store.
const (
	FieldID           = "id"
	FieldPrice        = "price"
	FieldQty          = "qty"
	FieldSearchTokens = "searchTokens"
)

// TokenFields are the fields whose words feed SearchTokens.
var TokenFields = []string{FieldArtist, FieldAlbum, FieldCategory, FieldFormat}

// Product is a catalog entry. IDs are UUIDv7 so ascending ID order is
// creation order.
type Product struct {
	ID           string    `json:"id" msgpack:"id"`
	Artist       string    `json:"artist" msgpack:"artist"`
	Album        string    `json:"album" msgpack:"album"`
	Format       Format    `json:"format" msgpack:"format"`
	Category     Category  `json:"category" msgpack:"category"`
	Price        float64   `json:"price" msgpack:"price"`
	Qty          int       `json:"qty" msgpack:"qty"`
	MBID         string    `json:"mbid,omitempty" msgpack:"mbid"`
	Tracklist    []string  `json:"tracklist" msgpack:"tracklist"`
	SearchTokens []string  `json:"-" msgpack:"searchTokens"`
	Created      time.Time `json:"created" msgpack:"created"`
	LastModified time.Time `json:"lastModified" msgpack:"lastModified"`
}

func (p Product) EntityID() string { return p.ID }

// TokenValues returns the token source values in TokenFields order.
func (p Product) TokenValues() []string {
	return []string{p.Artist, p.Album, string(p.Category), string(p.Format)}
}

// IdentityKey is the unique (artist, album, format) key of p.
func (p Product) IdentityKey() string {
	return strings.Join([]string{p.Artist, p.Album, string(p.Format)}, "\x00")
}

// CreateProduct is the input of Service.Create.
type CreateProduct struct {
	Artist    string   `json:"artist"`
	Album     string   `json:"album"`
	Format    Format   `json:"format"`
	Category  Category `json:"category"`
	Price     float64  `json:"price"`
	Qty       int      `json:"qty"`
	MBID      string   `json:"mbid,omitempty"`
	Tracklist []string `json:"tracklist,omitempty"`
}

func (c CreateProduct) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Artist, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Album, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Format, validation.Required, validation.In(Formats...)),
		validation.Field(&c.Category, validation.Required, validation.In(Categories...)),
		validation.Field(&c.Price, validation.Min(0.0)),
		validation.Field(&c.Qty, validation.Min(0)),
	)
}

// UpdateProduct carries the fields to change. Nil fields are left alone.
// Stock is not updatable; it only goes down through DecreaseQuantity.
type UpdateProduct struct {
	Artist    *string   `json:"artist,omitempty"`
	Album     *string   `json:"album,omitempty"`
	Format    *Format   `json:"format,omitempty"`
	Category  *Category `json:"category,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	MBID      *string   `json:"mbid,omitempty"`
	Tracklist []string  `json:"tracklist,omitempty"`
}

func (u UpdateProduct) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Artist, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.Album, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.Format, validation.NilOrNotEmpty, validation.In(Formats...)),
		validation.Field(&u.Category, validation.NilOrNotEmpty, validation.In(Categories...)),
		validation.Field(&u.Price, validation.Min(0.0)),
	)
}

// apply writes the set fields into p and returns the names of the fields
// whose value changed.
func (u UpdateProduct) apply(p *Product) []string {
	var changed []string

	setString := func(field string, dst *string, src *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if v != *dst {
			*dst = v
			changed = append(changed, field)
		}
	}

	setString(FieldArtist, &p.Artist, u.Artist)
	setString(FieldAlbum, &p.Album, u.Album)
	setString("mbid", &p.MBID, u.MBID)

	if u.Format != nil && *u.Format != p.Format {
		p.Format = *u.Format
		changed = append(changed, FieldFormat)
	}
	if u.Category != nil && *u.Category != p.Category {
		p.Category = *u.Category
		changed = append(changed, FieldCategory)
	}
	if u.Price != nil && *u.Price != p.Price {
		p.Price = *u.Price
		changed = append(changed, FieldPrice)
	}
	if u.Tracklist != nil {
		p.Tracklist = append([]string(nil), u.Tracklist...)
		changed = append(changed, "tracklist")
	}

	return changed
}
