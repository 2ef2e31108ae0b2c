package catalog

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/tokenizer"
)

// MatchPolicy decides how free-text query words combine.
type MatchPolicy int

const (
	// MatchAny returns products carrying at least one query word as a token.
	MatchAny MatchPolicy = iota
	// MatchAll returns products carrying every query word as a token.
	MatchAll
)

func (m MatchPolicy) String() string {
	if m == MatchAll {
		return "all"
	}
	return "any"
}

// SearchQuery is the product search input. Empty fields do not filter.
type SearchQuery struct {
	Q        string   `json:"q,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	Album    string   `json:"album,omitempty"`
	Format   Format   `json:"format,omitempty"`
	Category Category `json:"category,omitempty"`
	PriceGTE *float64 `json:"price_gte,omitempty"`
	PriceLTE *float64 `json:"price_lte,omitempty"`
	QtyGTE   *int     `json:"qty_gte,omitempty"`
	QtyLTE   *int     `json:"qty_lte,omitempty"`
}

func (q SearchQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Format, validation.In(Formats...)),
		validation.Field(&q.Category, validation.In(Categories...)),
		validation.Field(&q.PriceGTE, validation.Min(0.0)),
		validation.Field(&q.PriceLTE, validation.Min(0.0)),
		validation.Field(&q.QtyGTE, validation.Min(0)),
		validation.Field(&q.QtyLTE, validation.Min(0)),
	)
}

// Filter maps q to a store filter. Query words are matched against the
// search tokens according to policy.
func (q SearchQuery) Filter(tok tokenizer.Tokenizer, policy MatchPolicy) query.Filter {
	f := query.Filter{}

	setString := func(field, v string) {
		if v = strings.TrimSpace(v); v != "" {
			f[field] = v
		}
	}
	setString(FieldArtist, q.Artist)
	setString(FieldAlbum, q.Album)
	setString(FieldFormat, string(q.Format))
	setString(FieldCategory, string(q.Category))

	if price := query.Range(q.PriceGTE, q.PriceLTE); price != nil {
		f[FieldPrice] = price
	}
	if qty := query.Range(q.QtyGTE, q.QtyLTE); qty != nil {
		f[FieldQty] = qty
	}

	if words := tok.QueryTokens(q.Q); len(words) > 0 {
		op := query.OpIn
		if policy == MatchAll {
			op = query.OpAll
		}
		f[FieldSearchTokens] = query.Ops{op: words}
	}

	return f
}
