package cacheinfra

import (
	"bytes"
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMemoryBackend(t *testing.T) (*MemoryBackend, *fakeClock) {
	t.Helper()

	backend, err := NewMemoryBackend(DefaultConfig())
	if err != nil {
		t.Fatalf("NewMemoryBackend() error = %v", err)
	}

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	backend.now = clock.Now
	return backend, clock
}

func TestNewMemoryBackend_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 0

	backend, err := NewMemoryBackend(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if backend != nil {
		t.Error("expected nil backend on error")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T", err)
	}
}

func TestMemoryBackend_SetGet(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestMemoryBackend(t)

	if _, found, err := backend.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected miss on empty cache, found=%v err=%v", found, err)
	}

	value := []byte("payload")
	if err := backend.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'X'

	got, found, err := backend.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("expected stored copy %q, got %q", "payload", got)
	}
}

func TestMemoryBackend_PerEntryExpiry(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend(t)

	_ = backend.Set(ctx, "search", []byte("ids"), time.Minute)
	_ = backend.Set(ctx, "entity", []byte("doc"), 10*time.Minute)

	clock.Advance(61 * time.Second)

	if _, found, _ := backend.Get(ctx, "search"); found {
		t.Error("expected search entry to expire after its own TTL")
	}
	if _, found, _ := backend.Get(ctx, "entity"); !found {
		t.Error("expected entity entry to outlive the search TTL")
	}
}

func TestMemoryBackend_TTLCeiling(t *testing.T) {
	ctx := context.Background()
	backend, clock := newTestMemoryBackend(t)

	_ = backend.Set(ctx, "k", []byte("v"), time.Hour)
	clock.Advance(10*time.Minute + time.Second)

	if _, found, _ := backend.Get(ctx, "k"); found {
		t.Error("expected entry to be capped at the configured TTL")
	}
}

func TestMemoryBackend_Delete(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestMemoryBackend(t)

	_ = backend.Set(ctx, "k", []byte("v"), time.Minute)
	if err := backend.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := backend.Get(ctx, "k"); found {
		t.Error("expected miss after delete")
	}

	if err := backend.Delete(ctx, "missing"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
}

func TestMemoryBackend_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestMemoryBackend(t)

	for _, key := range []string{"product:search:a", "product:search:b", "product:entity:1"} {
		_ = backend.Set(ctx, key, []byte("v"), time.Minute)
	}

	if err := backend.DeletePrefix(ctx, "product:search:"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}

	for _, key := range []string{"product:search:a", "product:search:b"} {
		if _, found, _ := backend.Get(ctx, key); found {
			t.Errorf("expected %s to be removed", key)
		}
	}
	if _, found, _ := backend.Get(ctx, "product:entity:1"); !found {
		t.Error("expected entity key to survive prefix delete")
	}
}
