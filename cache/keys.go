package cache

import "strings"

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

const (
	entitySegment = "entity"
	searchSegment = "search"
)

// KeyBuilder produces the entity and search keys of one namespace. The two
// key spaces never overlap.
type KeyBuilder struct {
	Namespace string
}

// NewKeyBuilder returns a builder for namespace.
func NewKeyBuilder(namespace string) KeyBuilder {
	return KeyBuilder{Namespace: namespace}
}

// EntityKey returns "<ns>:entity:<id>".
func (k KeyBuilder) EntityKey(id string) string {
	return k.join(entitySegment, id)
}

// SearchKey returns "<ns>:search:<fingerprint of filter>".
func (k KeyBuilder) SearchKey(filter any) string {
	return k.join(searchSegment, Fingerprint(filter))
}

// SearchPrefix returns the prefix shared by every search key of the namespace.
func (k KeyBuilder) SearchPrefix() string {
	return k.join(searchSegment, "")
}

func (k KeyBuilder) join(segment, value string) string {
	parts := make([]string, 0, 3)
	if k.Namespace != "" {
		parts = append(parts, k.Namespace)
	}
	parts = append(parts, segment, value)
	return strings.Join(parts, KeySeparator)
}
