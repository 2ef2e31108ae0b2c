// Package config loads the catalog configuration.
//
// Loading order: defaults, then each YAML file in turn (missing files are
// skipped), then CATALOG_* environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/pagination"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreMongo    = "mongo"
)

// Config is the catalog configuration.
type Config struct {
	Pagination PaginationConfig `yaml:"pagination"`
	Cache      CacheConfig      `yaml:"cache"`
	Store      StoreConfig      `yaml:"store"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

type CacheConfig struct {
	Driver       string        `yaml:"driver"`
	EntityTTL    time.Duration `yaml:"entity_ttl"`
	SearchTTL    time.Duration `yaml:"search_ttl"`
	MaxCachedIDs int           `yaml:"max_cached_ids"`
	Memory       MemoryConfig  `yaml:"memory"`
	Redis        RedisConfig   `yaml:"redis"`
}

type MemoryConfig struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StoreConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	// Database names the Mongo database. Only used by the mongo driver.
	Database  string        `yaml:"database"`
	SlowQuery time.Duration `yaml:"slow_query"`
}

type SearchConfig struct {
	// MatchAllTokens requires every query word to match instead of any.
	MatchAllTokens bool `yaml:"match_all_tokens"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the stock configuration: an in-memory cache in front of
// an in-memory sqlite database.
func Default() Config {
	c := cache.DefaultConfig()
	limits := pagination.DefaultLimits()
	return Config{
		Pagination: PaginationConfig{
			DefaultLimit: limits.Default,
			MaxLimit:     limits.Max,
		},
		Cache: CacheConfig{
			Driver:       c.Driver,
			EntityTTL:    c.EntityTTL,
			SearchTTL:    c.SearchTTL,
			MaxCachedIDs: c.MaxCachedIDs,
			Memory: MemoryConfig{
				Capacity:           c.Memory.Capacity,
				NumShards:          c.Memory.NumShards,
				EvictionPercentage: c.Memory.EvictionPercentage,
				EvictionInterval:   c.Memory.EvictionInterval,
			},
			Redis: RedisConfig{Addr: c.Redis.Addr},
		},
		Store: StoreConfig{
			Driver:       StoreSQLite,
			DSN:          "file:catalog?mode=memory&cache=shared",
			MaxOpenConns: 1,
			Database:     "catalog",
			SlowQuery:    50 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, files and the environment.
func Load(files ...string) (Config, error) {
	cfg := Default()
	for _, file := range files {
		if err := cfg.loadFile(file); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(file string) error {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

// ApplyEnvOverrides applies CATALOG_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	strs := map[string]*string{
		"CATALOG_CACHE_DRIVER":   &c.Cache.Driver,
		"CATALOG_REDIS_ADDR":     &c.Cache.Redis.Addr,
		"CATALOG_REDIS_PASSWORD": &c.Cache.Redis.Password,
		"CATALOG_STORE_DRIVER":   &c.Store.Driver,
		"CATALOG_STORE_DSN":      &c.Store.DSN,
		"CATALOG_STORE_DATABASE": &c.Store.Database,
		"CATALOG_LOG_LEVEL":      &c.Logging.Level,
	}
	for name, field := range strs {
		if val := os.Getenv(name); val != "" {
			*field = val
		}
	}

	ints := map[string]*int{
		"CATALOG_DEFAULT_LIMIT":  &c.Pagination.DefaultLimit,
		"CATALOG_MAX_LIMIT":      &c.Pagination.MaxLimit,
		"CATALOG_MAX_CACHED_IDS": &c.Cache.MaxCachedIDs,
	}
	for name, field := range ints {
		if val := os.Getenv(name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = n
		}
	}

	durations := map[string]*time.Duration{
		"CATALOG_ENTITY_TTL": &c.Cache.EntityTTL,
		"CATALOG_SEARCH_TTL": &c.Cache.SearchTTL,
	}
	for name, field := range durations {
		if val := os.Getenv(name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = d
		}
	}

	bools := map[string]*bool{
		"CATALOG_MATCH_ALL_TOKENS": &c.Search.MatchAllTokens,
		"CATALOG_LOG_PRETTY":       &c.Logging.Pretty,
	}
	for name, field := range bools {
		if val := os.Getenv(name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = b
		}
	}
	return nil
}

// Validate reports every invalid section.
func (c Config) Validate() error {
	return validation.Errors{
		"pagination": c.Pagination.Validate(),
		"cache":      c.Cache.Validate(),
		"store":      c.Store.Validate(),
		"logging":    c.Logging.Validate(),
	}.Filter()
}

func (p PaginationConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxLimit, validation.Required, validation.Min(1)),
		validation.Field(&p.DefaultLimit, validation.Required, validation.Min(1), validation.Max(p.MaxLimit)),
	)
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(cache.DriverMemory, cache.DriverRedis)),
		validation.Field(&c.EntityTTL, validation.Required, validation.Min(time.Duration(0))),
		validation.Field(&c.SearchTTL, validation.Required, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxCachedIDs, validation.Required, validation.Min(1)),
		validation.Field(&c.Redis, validation.By(func(any) error {
			if c.Driver != cache.DriverRedis {
				return nil
			}
			return validation.ValidateStruct(&c.Redis, validation.Field(&c.Redis.Addr, validation.Required))
		})),
	)
}

func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(StoreMemory, StoreSQLite, StorePostgres, StoreMySQL, StoreMongo)),
		validation.Field(&s.DSN, validation.When(s.Driver != StoreMemory, validation.Required)),
		validation.Field(&s.Database, validation.When(s.Driver == StoreMongo, validation.Required)),
		validation.Field(&s.MaxOpenConns, validation.Min(0)),
		validation.Field(&s.SlowQuery, validation.Min(time.Duration(0))),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
	)
}

// Limits returns the pagination limits.
func (c Config) Limits() pagination.Limits {
	return pagination.Limits{Default: c.Pagination.DefaultLimit, Max: c.Pagination.MaxLimit}
}

// CacheBackend returns the cache backend configuration.
func (c Config) CacheBackend() cache.Config {
	return cache.Config{
		Driver:       c.Cache.Driver,
		EntityTTL:    c.Cache.EntityTTL,
		SearchTTL:    c.Cache.SearchTTL,
		MaxCachedIDs: c.Cache.MaxCachedIDs,
		Memory: cache.MemoryConfig{
			Capacity:           c.Cache.Memory.Capacity,
			NumShards:          c.Cache.Memory.NumShards,
			EvictionPercentage: c.Cache.Memory.EvictionPercentage,
			EvictionInterval:   c.Cache.Memory.EvictionInterval,
		},
		Redis: cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
		},
	}
}

// Catalog returns the catalog service configuration.
func (c Config) Catalog() catalog.Config {
	match := catalog.MatchAny
	if c.Search.MatchAllTokens {
		match = catalog.MatchAll
	}
	return catalog.Config{
		Cache:  repositorycache.ConfigFromCache(c.CacheBackend(), c.Store.SlowQuery),
		Limits: c.Limits(),
		Match:  match,
	}
}

// LoggingSetup returns the logger configuration.
func (c Config) LoggingSetup() logging.Config {
	return logging.Config{Level: c.Logging.Level, Pretty: c.Logging.Pretty, Output: os.Stderr}
}
