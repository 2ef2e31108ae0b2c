package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
)

// Supported backend drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Driver       string
	EntityTTL    time.Duration
	SearchTTL    time.Duration
	MaxCachedIDs int
	Memory       MemoryConfig
	Redis        RedisConfig
}

// MemoryConfig mirrors the in-process sturdyc options.
type MemoryConfig struct {
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// RedisConfig configures the shared Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	mem := cacheinfra.DefaultConfig()
	return Config{
		Driver:       DriverMemory,
		EntityTTL:    10 * time.Minute,
		SearchTTL:    60 * time.Second,
		MaxCachedIDs: 10000,
		Memory: MemoryConfig{
			Capacity:           mem.Capacity,
			NumShards:          mem.NumShards,
			EvictionPercentage: mem.EvictionPercentage,
			EvictionInterval:   mem.EvictionInterval,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.EntityTTL <= 0 {
		return &cacheinfra.ConfigError{Field: "EntityTTL", Message: "must be greater than 0"}
	}
	if c.SearchTTL <= 0 {
		return &cacheinfra.ConfigError{Field: "SearchTTL", Message: "must be greater than 0"}
	}
	if c.MaxCachedIDs <= 0 {
		return &cacheinfra.ConfigError{Field: "MaxCachedIDs", Message: "must be greater than 0"}
	}

	switch c.Driver {
	case DriverMemory:
		return c.memoryConfig().Validate()
	case DriverRedis:
		if c.Redis.Addr == "" {
			return &cacheinfra.ConfigError{Field: "Redis.Addr", Message: "cannot be empty"}
		}
		return nil
	}
	return &cacheinfra.ConfigError{Field: "Driver", Message: fmt.Sprintf("unknown driver %q", c.Driver)}
}

// NewBackend builds the backend selected by Driver.
func NewBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cacheinfra.NewRedisBackend(client), nil
	}

	return cacheinfra.NewMemoryBackend(cfg.memoryConfig())
}

// memoryConfig sizes the sturdyc ceiling to the longest of the two TTLs.
func (c Config) memoryConfig() cacheinfra.Config {
	ttl := c.EntityTTL
	if c.SearchTTL > ttl {
		ttl = c.SearchTTL
	}
	return cacheinfra.Config{
		Capacity:           c.Memory.Capacity,
		NumShards:          c.Memory.NumShards,
		TTL:                ttl,
		EvictionPercentage: c.Memory.EvictionPercentage,
		EvictionInterval:   c.Memory.EvictionInterval,
	}
}
