// Package catalog implements the product catalog on top of the cached
// search engines.
//
// Products carry search tokens derived from their artist, album, category
// and format. Free-text search turns the query into words and matches them
// against those tokens, either any word (the default) or every word.
//
// Stock leaves the catalog only through DecreaseQuantity, which relies on the
// store's atomic conditional decrement and never reads before it writes.
package catalog
