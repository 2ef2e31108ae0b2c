package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend stores encoded values in a sharded sturdyc client. The client
// TTL acts as a ceiling; each entry also carries its own deadline so that
// entity and search values can expire on different schedules.
type MemoryBackend struct {
	client *sturdyc.Client[memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryBackend validates cfg and builds the sturdyc client.
func NewMemoryBackend(cfg Config) (*MemoryBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[memoryEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryBackend{client: client, maxTTL: cfg.TTL, now: time.Now}, nil
}

// Get returns the stored bytes for key. Expired entries are removed and
// reported as misses.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := m.client.Get(key)
	if !ok {
		return nil, false, nil
	}

	if !m.now().Before(entry.expiresAt) {
		m.client.Delete(key)
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores value under key for ttl, capped at the configured ceiling.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > m.maxTTL {
		ttl = m.maxTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.client.Set(key, memoryEntry{value: stored, expiresAt: m.now().Add(ttl)})
	return nil
}

// Delete removes key. Missing keys are not an error.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.client.Delete(key)
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (m *MemoryBackend) DeletePrefix(_ context.Context, prefix string) error {
	for _, key := range m.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			m.client.Delete(key)
		}
	}
	return nil
}
