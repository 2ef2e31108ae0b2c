// Package catalogtest provides catalog fixtures for tests.
package catalogtest

import (
	"fmt"

	"github.com/goliatone/go-catalog-cache/catalog"
)

var artists = []struct {
	name     string
	category catalog.Category
}{
	{"Queen", catalog.CategoryRock},
	{"The Beatles", catalog.CategoryRock},
	{"Miles Davis", catalog.CategoryJazz},
	{"Radiohead", catalog.CategoryAlternative},
	{"Pink Floyd", catalog.CategoryRock},
}

// Products returns n valid product inputs with distinct identities.
// Artists rotate through a fixed list, formats alternate Vinyl and CD,
// prices start at 10 and every product holds 5 units.
func Products(n int) []catalog.CreateProduct {
	out := make([]catalog.CreateProduct, n)
	for i := range out {
		a := artists[i%len(artists)]
		format := catalog.FormatVinyl
		if i%2 == 1 {
			format = catalog.FormatCD
		}
		out[i] = catalog.CreateProduct{
			Artist:   a.name,
			Album:    fmt.Sprintf("Album %02d", i+1),
			Format:   format,
			Category: a.category,
			Price:    float64(10 + i),
			Qty:      5,
		}
	}
	return out
}
