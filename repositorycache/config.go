package repositorycache

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/internal/logging"
)

// Config controls the caches built around one Source.
type Config struct {
	// Namespace prefixes every key. Empty derives it from the entity type name.
	Namespace string

	EntityTTL time.Duration
	SearchTTL time.Duration

	// MaxCachedIDs caps the ID lists that are written to the search cache.
	// Larger result sets are served live.
	MaxCachedIDs int

	// SlowQueryThreshold triggers a warning for slow store calls. Zero disables it.
	SlowQueryThreshold time.Duration
}

// DefaultConfig mirrors cache.DefaultConfig with a 50ms slow query threshold.
func DefaultConfig() Config {
	return ConfigFromCache(cache.DefaultConfig(), 50*time.Millisecond)
}

// ConfigFromCache copies the TTLs and ID cap from a cache.Config.
func ConfigFromCache(c cache.Config, slowQuery time.Duration) Config {
	return Config{
		EntityTTL:          c.EntityTTL,
		SearchTTL:          c.SearchTTL,
		MaxCachedIDs:       c.MaxCachedIDs,
		SlowQueryThreshold: slowQuery,
	}
}

// Option configures a CachedSource.
type Option func(*options)

type options struct {
	logger *zerolog.Logger
	spawn  func(func())
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithSpawner replaces the goroutine launcher used for fire-and-forget cache
// writes. Tests pass a synchronous spawner.
func WithSpawner(spawn func(func())) Option {
	return func(o *options) {
		o.spawn = spawn
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		logger := logging.NewLogger("repositorycache")
		o.logger = &logger
	}
	if o.spawn == nil {
		o.spawn = func(fn func()) { go fn() }
	}
	return o
}
