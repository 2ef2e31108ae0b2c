package bunstore

import (
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/query"
)

var columns = map[string]string{
	catalog.FieldID:       "p.id",
	catalog.FieldArtist:   "p.artist",
	catalog.FieldAlbum:    "p.album",
	catalog.FieldFormat:   "p.format",
	catalog.FieldCategory: "p.category",
	catalog.FieldPrice:    "p.price",
	catalog.FieldQty:      "p.qty",
}

var comparisons = map[string]string{
	query.OpEq:  "=",
	query.OpGT:  ">",
	query.OpGTE: ">=",
	query.OpLT:  "<",
	query.OpLTE: "<=",
}

// applyFilter translates f into WHERE clauses on a products select. Token
// filters become subqueries on product_tokens.
func applyFilter(idb bun.IDB, q *bun.SelectQuery, f query.Filter) (*bun.SelectQuery, error) {
	for _, field := range f.Fields() {
		value := f[field]

		if field == catalog.FieldSearchTokens {
			sub, err := tokenSubquery(idb, value)
			if err != nil {
				return nil, err
			}
			q = q.Where("? IN (?)", bun.Ident("p.id"), sub)
			continue
		}

		column, ok := columns[field]
		if !ok {
			return nil, &query.UnsupportedError{Field: field}
		}

		ops, isOps := query.AsOps(value)
		if !isOps {
			if list, isList := value.([]string); isList {
				q = q.Where("? IN (?)", bun.Ident(column), bun.In(list))
				continue
			}
			q = q.Where("? = ?", bun.Ident(column), value)
			continue
		}

		for _, op := range ops.Operators() {
			switch op {
			case query.OpIn:
				q = q.Where("? IN (?)", bun.Ident(column), bun.In(ops[op]))
			default:
				cmp, ok := comparisons[op]
				if !ok {
					return nil, &query.UnsupportedError{Field: field, Operator: op}
				}
				q = q.Where(fmt.Sprintf("? %s ?", cmp), bun.Ident(column), ops[op])
			}
		}
	}
	return q, nil
}

// tokenSubquery selects the IDs of products holding any ($in) or every
// ($all) of the given tokens.
func tokenSubquery(idb bun.IDB, value any) (*bun.SelectQuery, error) {
	ops, ok := query.AsOps(value)
	if !ok {
		if list, isList := value.([]string); isList {
			ops = query.Ops{query.OpIn: list}
		} else {
			return nil, &query.UnsupportedError{Field: catalog.FieldSearchTokens}
		}
	}
	if len(ops) != 1 {
		return nil, &query.UnsupportedError{Field: catalog.FieldSearchTokens, Operator: fmt.Sprint(ops.Operators())}
	}

	op := ops.Operators()[0]
	tokens, ok := ops[op].([]string)
	if !ok {
		return nil, &query.UnsupportedError{Field: catalog.FieldSearchTokens, Operator: op}
	}

	sub := idb.NewSelect().
		Model((*tokenRow)(nil)).
		Column("t.product_id").
		Where("? IN (?)", bun.Ident("t.token"), bun.In(tokens))

	switch op {
	case query.OpIn:
		return sub.Distinct(), nil
	case query.OpAll:
		return sub.
			Group("t.product_id").
			Having("COUNT(DISTINCT ?) = ?", bun.Ident("t.token"), len(tokens)), nil
	}
	return nil, &query.UnsupportedError{Field: catalog.FieldSearchTokens, Operator: op}
}
