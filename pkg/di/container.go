package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/config"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/internal/store/bunstore"
	"github.com/goliatone/go-catalog-cache/internal/store/memstore"
	"github.com/goliatone/go-catalog-cache/internal/store/mongostore"
	"github.com/goliatone/go-catalog-cache/orders"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

// Store is a backend that holds both products and orders.
type Store interface {
	catalog.Store
	orders.Store
}

// Container wires the catalog components from a config.Config. It owns the
// cache backend and the store, and provides the catalog and order services
// built on them.
type Container struct {
	config  config.Config
	logger  zerolog.Logger
	backend cache.Backend
	store   Store
	catalog *catalog.Service
	orders  *orders.Service
	closers []func(context.Context) error

	catalogOpts []catalog.Option
}

// Option configures a Container.
type Option func(*Container)

// WithStore replaces the configured store. The container does not close it.
func WithStore(store Store) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithBackend replaces the configured cache backend.
func WithBackend(backend cache.Backend) Option {
	return func(c *Container) {
		c.backend = backend
	}
}

// WithCatalogOptions forwards options to the catalog service.
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(c *Container) {
		c.catalogOpts = append(c.catalogOpts, opts...)
	}
}

// NewContainer sets up logging, opens the cache backend and the store, and
// builds the services. On error everything opened so far is closed.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.Setup(cfg.LoggingSetup())
	c := &Container{
		config: cfg,
		logger: logging.NewLogger("di"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.backend == nil {
		backend, err := cache.NewBackend(cfg.CacheBackend())
		if err != nil {
			return nil, fmt.Errorf("cache backend: %w", err)
		}
		c.backend = backend
	}

	if c.store == nil {
		store, closer, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		c.store = store
		c.closers = append(c.closers, closer)
	}

	catalogOpts := append([]catalog.Option{catalog.WithLogger(logging.NewLogger("catalog"))}, c.catalogOpts...)
	c.catalog = catalog.NewService(c.store, c.backend, cfg.Catalog(), catalogOpts...)
	c.orders = orders.NewService(c.store, c.catalog, c.catalog.Unit())

	c.logger.Info().
		Str("cache", cfg.Cache.Driver).
		Str("store", cfg.Store.Driver).
		Msg("catalog container ready")
	return c, nil
}

// NewContainerWithDefaults creates a container from config.Default.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Default(), opts...)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (Store, func(context.Context) error, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memstore.New(), func(context.Context) error { return nil }, nil

	case config.StoreMongo:
		s, err := mongostore.Open(ctx, mongostore.Config{URI: cfg.DSN, Database: cfg.Database})
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo store: %w", err)
		}
		return s, s.Close, nil
	}

	s, err := bunstore.Open(bunstore.Config{
		Driver:             cfg.Driver,
		DSN:                cfg.DSN,
		MaxOpenConns:       cfg.MaxOpenConns,
		SlowQueryThreshold: cfg.SlowQuery,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open sql store: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("migrate sql store: %w", err)
	}
	return s, func(context.Context) error { return s.Close() }, nil
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Backend returns the shared cache backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// Store returns the product and order store.
func (c *Container) Store() Store {
	return c.store
}

// Catalog returns the catalog service.
func (c *Container) Catalog() *catalog.Service {
	return c.catalog
}

// Orders returns the order service.
func (c *Container) Orders() *orders.Service {
	return c.orders
}

// Close releases the stores the container opened.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i](ctx))
	}
	c.closers = nil
	return errors.Join(errs...)
}

// NewCachedSource puts another entity source behind the container's cache
// backend, with the container's TTLs. The namespace keeps its keys apart
// from the catalog's.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewCachedSource[Artist](container, artistStore, "artist")
func NewCachedSource[T repositorycache.Entity](container *Container, source repositorycache.Source[T], namespace string, opts ...repositorycache.Option) *repositorycache.CachedSource[T] {
	cfg := container.config.Catalog().Cache
	cfg.Namespace = namespace
	return repositorycache.New[T](source, container.backend, cfg, opts...)
}
