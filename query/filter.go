// Package query defines the structural filter shared by the cache layer and
// the stores.
//
// A Filter maps field names to either a scalar (equality), a []string
// (membership) or an operator map such as {"$gte": 10, "$lte": 20}. Filters are
// plain data so they can be fingerprinted for cache keys and translated by
// every store backend.
package query

import (
	"fmt"
	"sort"
)

// Operators understood by every store.
const (
	OpEq  = "$eq"
	OpGT  = "$gt"
	OpGTE = "$gte"
	OpLT  = "$lt"
	OpLTE = "$lte"
	OpIn  = "$in"
	OpAll = "$all"
)

// FieldID is the identifier field every entity exposes.
const FieldID = "id"

// Filter is a structural query filter.
type Filter map[string]any

// Ops is an operator map used as a Filter value.
type Ops map[string]any

// Clone returns a copy of f. Operator maps are copied one level deep so that
// callers can extend them without touching the original.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		switch ops := v.(type) {
		case Ops:
			out[k] = ops.clone()
		case map[string]any:
			out[k] = Ops(ops).clone()
		default:
			out[k] = v
		}
	}
	return out
}

// WithIDAfter returns a copy of f restricted to IDs strictly greater than cursor.
// An empty cursor returns an unmodified copy.
func (f Filter) WithIDAfter(cursor string) Filter {
	out := f.Clone()
	if cursor == "" {
		return out
	}

	ops, ok := out[FieldID].(Ops)
	if !ok {
		ops = Ops{}
		if eq, isScalar := out[FieldID]; isScalar && eq != nil {
			ops[OpEq] = eq
		}
	}
	ops[OpGT] = cursor
	out[FieldID] = ops
	return out
}

// Fields returns the filter keys in sorted order.
func (f Filter) Fields() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range builds an operator map for an inclusive numeric range. Nil bounds are skipped
// and nil is returned when both are nil.
func Range[N int | float64](gte, lte *N) Ops {
	if gte == nil && lte == nil {
		return nil
	}
	ops := Ops{}
	if gte != nil {
		ops[OpGTE] = *gte
	}
	if lte != nil {
		ops[OpLTE] = *lte
	}
	return ops
}

// AsOps returns v as an operator map when it is one.
func AsOps(v any) (Ops, bool) {
	switch ops := v.(type) {
	case Ops:
		return ops, true
	case map[string]any:
		return Ops(ops), true
	}
	return nil, false
}

func (o Ops) clone() Ops {
	out := make(Ops, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Operators returns the operator names in sorted order.
func (o Ops) Operators() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnsupportedError reports a filter construct a backend cannot translate.
type UnsupportedError struct {
	Field    string
	Operator string
}

func (e *UnsupportedError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("query: unsupported field %q", e.Field)
	}
	return fmt.Sprintf("query: unsupported operator %q on field %q", e.Operator, e.Field)
}
