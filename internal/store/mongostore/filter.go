package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/query"
)

var fields = map[string]string{
	catalog.FieldID:           "_id",
	catalog.FieldArtist:       "artist",
	catalog.FieldAlbum:        "album",
	catalog.FieldFormat:       "format",
	catalog.FieldCategory:     "category",
	catalog.FieldPrice:        "price",
	catalog.FieldQty:          "qty",
	catalog.FieldSearchTokens: "searchTokens",
}

var operators = map[string]bool{
	query.OpEq:  true,
	query.OpGT:  true,
	query.OpGTE: true,
	query.OpLT:  true,
	query.OpLTE: true,
	query.OpIn:  true,
	query.OpAll: true,
}

// toBSON translates f into a Mongo filter document. The operator names are
// shared, so operator maps pass through once validated.
func toBSON(f query.Filter) (bson.D, error) {
	out := bson.D{}
	for _, field := range f.Fields() {
		key, ok := fields[field]
		if !ok {
			return nil, &query.UnsupportedError{Field: field}
		}

		value := f[field]
		if ops, ok := query.AsOps(value); ok {
			doc := bson.D{}
			for _, op := range ops.Operators() {
				if !operators[op] {
					return nil, &query.UnsupportedError{Field: field, Operator: op}
				}
				doc = append(doc, bson.E{Key: op, Value: ops[op]})
			}
			out = append(out, bson.E{Key: key, Value: doc})
			continue
		}

		if list, ok := value.([]string); ok {
			out = append(out, bson.E{Key: key, Value: bson.D{{Key: query.OpIn, Value: list}}})
			continue
		}
		out = append(out, bson.E{Key: key, Value: value})
	}
	return out, nil
}
