package cache

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a stable 16 hex digit digest of v. Structurally equal
// values produce the same fingerprint regardless of map iteration order or
// numeric representation (10 and 10.0 are equal).
func Fingerprint(v any) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(Canonical(v)))
}

// Canonical renders v in a deterministic textual form. Maps are written with
// sorted keys, pointers are followed, structs contribute their exported
// fields. Integers are written exactly; a float is written as an integer
// when it is integral and within the range float64 represents exactly.
func Canonical(v any) string {
	var b strings.Builder
	writeCanonical(&b, reflect.ValueOf(v))
	return b.String()
}

func writeCanonical(b *strings.Builder, rv reflect.Value) {
	if !rv.IsValid() {
		b.WriteString("nil")
		return
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		writeCanonical(b, rv.Elem())

	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))

	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		writeFloat(b, rv.Float())

	case reflect.Slice, reflect.Array:
		b.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, rv.Index(i))
		}
		b.WriteByte(']')

	case reflect.Map:
		pairs := make([][2]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, [2]string{
				Canonical(iter.Key().Interface()),
				Canonical(iter.Value().Interface()),
			})
		}
		writePairs(b, pairs)

	case reflect.Struct:
		rt := rv.Type()
		pairs := make([][2]string, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			pairs = append(pairs, [2]string{strconv.Quote(field.Name), Canonical(rv.Field(i).Interface())})
		}
		writePairs(b, pairs)

	default:
		// funcs, channels and complex numbers have no structural identity
		b.WriteString("<")
		b.WriteString(rv.Type().String())
		b.WriteString(">")
	}
}

// maxExactInt is 2^53, the largest magnitude below which every integer
// has an exact float64.
const maxExactInt = 1 << 53

func writeFloat(b *strings.Builder, f float64) {
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

func writePairs(b *strings.Builder, pairs [][2]string) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p[0])
		b.WriteByte(':')
		b.WriteString(p[1])
	}
	b.WriteByte('}')
}
