package tokenizer

// Tokenizer produces search tokens for an entity and the matching token list
// for a free-text query.
type Tokenizer interface {
	Generate(values ...string) []string
	QueryTokens(q string) []string
	NeedsRecompute(changed ...string) bool
}

// FieldTokenizer generates tokens from a fixed, ordered set of text fields.
type FieldTokenizer struct {
	fields []string
}

var _ Tokenizer = (*FieldTokenizer)(nil)

// NewFieldTokenizer returns a tokenizer for the given field names. The values
// passed to Generate must follow the same order.
func NewFieldTokenizer(fields ...string) *FieldTokenizer {
	return &FieldTokenizer{fields: append([]string(nil), fields...)}
}

// Fields returns the token source field names.
func (t *FieldTokenizer) Fields() []string {
	return append([]string(nil), t.fields...)
}

// Generate concatenates the ngrams of every non-empty value.
func (t *FieldTokenizer) Generate(values ...string) []string {
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, word := range Words(v) {
			addPrefixes(seen, word)
		}
	}
	return sortedKeys(seen)
}

// QueryTokens tokenizes a free-text query into the prefix space. Each query
// word is itself a prefix, so no expansion is needed. Duplicates are dropped
// and the result is sorted to keep filters (and their fingerprints) stable.
func (t *FieldTokenizer) QueryTokens(q string) []string {
	seen := make(map[string]struct{})
	for _, word := range Words(q) {
		seen[word] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	return sortedKeys(seen)
}

// NeedsRecompute reports whether any of the changed field names is a token source.
func (t *FieldTokenizer) NeedsRecompute(changed ...string) bool {
	for _, c := range changed {
		for _, f := range t.fields {
			if c == f {
				return true
			}
		}
	}
	return false
}
