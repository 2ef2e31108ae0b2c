package query

import (
	"fmt"
	"strings"
)

// Getter resolves a field of the candidate document. ok is false for unknown fields.
type Getter func(field string) (value any, ok bool)

// Match evaluates f against a document exposed through get. It is the
// reference semantics the SQL and Mongo translations follow.
func Match(f Filter, get Getter) (bool, error) {
	for _, field := range f.Fields() {
		actual, ok := get(field)
		if !ok {
			return false, &UnsupportedError{Field: field}
		}

		matched, err := matchValue(field, actual, f[field])
		if err != nil || !matched {
			return false, err
		}
	}
	return true, nil
}

func matchValue(field string, actual, expected any) (bool, error) {
	if ops, ok := AsOps(expected); ok {
		for _, op := range ops.Operators() {
			matched, err := matchOp(field, op, actual, ops[op])
			if err != nil || !matched {
				return false, err
			}
		}
		return true, nil
	}

	if list, ok := expected.([]string); ok {
		return matchOp(field, OpIn, actual, list)
	}

	return equal(actual, expected), nil
}

func matchOp(field, op string, actual, operand any) (bool, error) {
	switch op {
	case OpEq:
		return equal(actual, operand), nil
	case OpGT, OpGTE, OpLT, OpLTE:
		c, ok := compare(actual, operand)
		if !ok {
			return false, nil
		}
		switch op {
		case OpGT:
			return c > 0, nil
		case OpGTE:
			return c >= 0, nil
		case OpLT:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case OpIn:
		wanted, err := stringList(field, op, operand)
		if err != nil {
			return false, err
		}
		for _, w := range wanted {
			if contains(actual, w) {
				return true, nil
			}
		}
		return false, nil
	case OpAll:
		wanted, err := stringList(field, op, operand)
		if err != nil {
			return false, err
		}
		for _, w := range wanted {
			if !contains(actual, w) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, &UnsupportedError{Field: field, Operator: op}
}

func stringList(field, op string, v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	}
	return nil, &UnsupportedError{Field: field, Operator: op}
}

// contains treats array-valued fields as sets and scalar fields as a single value.
func contains(actual any, want string) bool {
	if list, ok := actual.([]string); ok {
		for _, item := range list {
			if item == want {
				return true
			}
		}
		return false
	}
	return equal(actual, want)
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return false
}

func compare(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}

	af, aok := Number(a)
	bf, bok := Number(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

// Number converts the numeric kinds used in filters to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
