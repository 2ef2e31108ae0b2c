// Package tokenizer builds the prefix token space used by catalog search.
//
// Entities store every prefix of every word of their designated text fields
// (their search tokens). A free-text query is split into normalized words and
// matched against that set with set-membership filters, which gives prefix
// matching without a full-text engine.
package tokenizer

import (
	"sort"
	"strings"
	"unicode"
)

// Normalize lowercases s, trims it and collapses every run of Unicode
// whitespace into a single ASCII space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// Words returns the normalized words of s. Empty input yields nil.
func Words(s string) []string {
	normalized := Normalize(s)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// Ngrams returns every non-empty prefix of every word of s, deduplicated.
// Order is not significant; the result is sorted so callers get stable output.
func Ngrams(s string) []string {
	seen := make(map[string]struct{})
	for _, word := range Words(s) {
		addPrefixes(seen, word)
	}
	return sortedKeys(seen)
}

func addPrefixes(into map[string]struct{}, word string) {
	runes := []rune(word)
	for i := 1; i <= len(runes); i++ {
		into[string(runes[:i])] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
