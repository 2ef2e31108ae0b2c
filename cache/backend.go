package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Backend is the byte-level key-value store behind every cache in this
// module. Get reports a miss with found=false and a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by backends that can drop a key range.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// ErrPrefixUnsupported is returned by DeletePrefix for backends without range deletes.
var ErrPrefixUnsupported = errors.New("cache: backend does not support prefix deletes")

// DecodeError reports a stored value that could not be decoded. Callers treat
// it as a miss.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cache: decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes v with msgpack.
func Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes data produced by Encode into v.
func Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// GetValue reads and decodes the value stored under key.
func GetValue[T any](ctx context.Context, backend Backend, key string) (T, bool, error) {
	var zero T

	data, found, err := backend.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}

	var value T
	if err := Decode(data, &value); err != nil {
		return zero, false, &DecodeError{Key: key, Err: err}
	}
	return value, true, nil
}

// SetValue encodes value and stores it under key for ttl.
func SetValue[T any](ctx context.Context, backend Backend, key string, value T, ttl time.Duration) error {
	data, err := Encode(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return backend.Set(ctx, key, data, ttl)
}

// DeletePrefix removes every key under prefix when the backend supports it.
func DeletePrefix(ctx context.Context, backend Backend, prefix string) error {
	deleter, ok := backend.(PrefixDeleter)
	if !ok {
		return ErrPrefixUnsupported
	}
	return deleter.DeletePrefix(ctx, prefix)
}
