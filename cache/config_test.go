package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Driver)
	}
	if cfg.EntityTTL != 10*time.Minute {
		t.Errorf("expected EntityTTL 10m, got %v", cfg.EntityTTL)
	}
	if cfg.SearchTTL != 60*time.Second {
		t.Errorf("expected SearchTTL 60s, got %v", cfg.SearchTTL)
	}
	if cfg.MaxCachedIDs != 10000 {
		t.Errorf("expected MaxCachedIDs 10000, got %d", cfg.MaxCachedIDs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "zero entity ttl", mutate: func(c *Config) { c.EntityTTL = 0 }, errorMsg: "EntityTTL"},
		{name: "zero search ttl", mutate: func(c *Config) { c.SearchTTL = 0 }, errorMsg: "SearchTTL"},
		{name: "zero max ids", mutate: func(c *Config) { c.MaxCachedIDs = 0 }, errorMsg: "MaxCachedIDs"},
		{name: "unknown driver", mutate: func(c *Config) { c.Driver = "memcached" }, errorMsg: "unknown driver"},
		{name: "redis without addr", mutate: func(c *Config) { c.Driver = DriverRedis; c.Redis.Addr = "" }, errorMsg: "Redis.Addr"},
		{name: "memory capacity", mutate: func(c *Config) { c.Memory.Capacity = 0 }, errorMsg: "Capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestNewBackend_Memory(t *testing.T) {
	ctx := context.Background()

	backend, err := NewBackend(DefaultConfig())
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	if err := backend.Set(ctx, "product:entity:1", []byte("doc"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, _ := backend.Get(ctx, "product:entity:1"); !found {
		t.Error("expected hit after Set")
	}
	if err := DeletePrefix(ctx, backend, "product:"); err != nil {
		t.Errorf("expected memory backend to support prefix deletes, got %v", err)
	}
}
