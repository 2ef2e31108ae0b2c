// Package cache provides the key building, fingerprinting and storage
// primitives shared by the entity and search caches.
//
// # Overview
//
// The package exports one storage interface and a handful of helpers:
//
//   - Backend: a byte-level key-value store with per-entry TTL
//   - KeyBuilder: builds "<ns>:entity:<id>" and "<ns>:search:<fingerprint>" keys
//   - Fingerprint: a stable digest of an arbitrary filter value
//   - GetValue / SetValue: msgpack encoding on top of any Backend
//
// Two backends ship with the module, both in internal/cacheinfra: an
// in-process sturdyc client and a Redis client. NewBackend picks one from
// Config.Driver.
//
// # Basic Usage
//
//	backend, err := cache.NewBackend(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	keys := cache.NewKeyBuilder("product")
//	key := keys.SearchKey(query.Filter{"artist": "queen"})
//
//	err = cache.SetValue(ctx, backend, key, []string{"id-1", "id-2"}, time.Minute)
//	ids, found, err := cache.GetValue[[]string](ctx, backend, key)
//
// # Fingerprints
//
// Canonical renders a value deterministically before hashing it with xxhash:
//
//   - Maps: pairs sorted by their canonical key
//   - Structs: exported fields, keyed by field name
//   - Pointers and interfaces: followed, nil renders as "nil"
//   - Numbers: integers exactly, integral floats as integers, so int 10 and
//     float 10.0 collide on purpose
//   - Strings: quoted, so "10" never collides with 10
//
// Functions and channels have no structural identity and render as their
// type name. Filters should not carry them.
//
// # Error Handling
//
// A miss is never an error: Get returns found=false. Values that fail to
// decode surface as *DecodeError so callers can count them and fall back to
// the store. Backends without range deletes return ErrPrefixUnsupported from
// DeletePrefix.
//
// # See Also
//
// The repositorycache package builds the entity cache, the ID-list caches and
// the pagination engines on top of these primitives.
package cache
