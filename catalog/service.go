package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/pagination"
	"github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/tokenizer"
	"github.com/goliatone/go-catalog-cache/uow"
)

// Config tunes the catalog service.
type Config struct {
	Cache  repositorycache.Config
	Limits pagination.Limits
	Match  MatchPolicy
}

// DefaultConfig returns the stock settings: cache defaults, 20/100 page
// limits and any-word matching.
func DefaultConfig() Config {
	return Config{
		Cache:  repositorycache.DefaultConfig(),
		Limits: pagination.DefaultLimits(),
		Match:  MatchAny,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithCacheOptions forwards options to the cached source.
func WithCacheOptions(opts ...repositorycache.Option) Option {
	return func(s *Service) {
		s.cacheOpts = append(s.cacheOpts, opts...)
	}
}

// Service implements the catalog operations on top of a Store and the
// search caches.
type Service struct {
	store   Store
	source  *repositorycache.CachedSource[Product]
	cursors *repositorycache.CursorEngine[Product]
	offsets *repositorycache.OffsetEngine[Product]
	unit    *uow.UnitOfWork
	tokens  *tokenizer.FieldTokenizer
	match   MatchPolicy

	logger    zerolog.Logger
	now       func() time.Time
	newID     func() (string, error)
	cacheOpts []repositorycache.Option
}

// NewService wires the caches for store into backend.
func NewService(store Store, backend cache.Backend, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokenizer.NewFieldTokenizer(TokenFields...),
		match:  cfg.Match,
		logger: logging.NewLogger("catalog"),
		now:    time.Now,
		newID:  newProductID,
	}
	for _, opt := range opts {
		opt(s)
	}

	cacheOpts := append([]repositorycache.Option{repositorycache.WithLogger(s.logger)}, s.cacheOpts...)
	s.source = repositorycache.New[Product](store, backend, cfg.Cache, cacheOpts...)
	s.cursors = repositorycache.NewCursorEngine(s.source, cfg.Limits, pagination.UUIDCursor)
	s.offsets = repositorycache.NewOffsetEngine(s.source, cfg.Limits)
	s.unit = uow.New(store, uow.WithLogger(s.logger))
	return s
}

func newProductID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Unit returns the unit of work bound to the product store. Callers that
// compose catalog writes with their own use it.
func (s *Service) Unit() *uow.UnitOfWork {
	return s.unit
}

// Source exposes the cached product source.
func (s *Service) Source() *repositorycache.CachedSource[Product] {
	return s.source
}

// Create validates in and stores a new product.
func (s *Service) Create(ctx context.Context, in CreateProduct) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, errs.Validation(err)
	}

	id, err := s.newID()
	if err != nil {
		return Product{}, errs.Internal(err, "generate product id")
	}

	now := s.now().UTC()
	p := Product{
		ID:           id,
		Artist:       strings.TrimSpace(in.Artist),
		Album:        strings.TrimSpace(in.Album),
		Format:       in.Format,
		Category:     in.Category,
		Price:        in.Price,
		Qty:          in.Qty,
		MBID:         strings.TrimSpace(in.MBID),
		Tracklist:    append([]string{}, in.Tracklist...),
		Created:      now,
		LastModified: now,
	}
	p.SearchTokens = s.tokens.Generate(p.TokenValues()...)

	if err := s.store.Insert(ctx, p); err != nil {
		if !errs.IsConflict(err) {
			s.logger.Error().Err(err).Str("artist", p.Artist).Str("album", p.Album).Msg("create product failed")
		}
		return Product{}, fmt.Errorf("create product: %w", err)
	}

	uow.AfterCommit(ctx, func(ctx context.Context) {
		s.source.Populate(ctx, p)
	})
	return p, nil
}

// Update applies in to product id inside a unit of work. Search tokens are
// regenerated only when a token field changed.
func (s *Service) Update(ctx context.Context, id string, in UpdateProduct) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, errs.Validation(err)
	}

	return uow.Transactional(ctx, s.unit, func(ctx context.Context) (Product, error) {
		current, err := s.source.FindByID(ctx, id)
		if err != nil {
			return Product{}, err
		}

		changed := in.apply(&current)
		if len(changed) == 0 {
			return current, nil
		}
		if s.tokens.NeedsRecompute(changed...) {
			current.SearchTokens = s.tokens.Generate(current.TokenValues()...)
		}
		current.LastModified = s.now().UTC()

		updated, err := s.store.Update(ctx, current)
		if err != nil {
			if !errs.IsConflict(err) && !errs.IsNotFound(err) {
				s.logger.Error().Err(err).Str("id", id).Strs("changed", changed).Msg("update product failed")
			}
			return Product{}, fmt.Errorf("update product: %w", err)
		}

		uow.AfterCommit(ctx, func(ctx context.Context) {
			s.source.Populate(ctx, updated)
		})
		return updated, nil
	})
}

// FlushSearches drops every cached search list so the next search reads
// the store. Single writes leave the lists to expire; bulk imports call this
// once they are done.
func (s *Service) FlushSearches(ctx context.Context) {
	s.source.FlushSearches(ctx)
}

// Get returns product id, served from the entity cache when possible.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.source.FindByID(ctx, id)
}

// SearchCursor returns the page of q matches after req.Cursor.
func (s *Service) SearchCursor(ctx context.Context, q SearchQuery, req repositorycache.CursorRequest) (pagination.CursorPage[Product], error) {
	if err := q.Validate(); err != nil {
		return pagination.CursorPage[Product]{}, errs.Validation(err)
	}
	return s.cursors.Search(ctx, q.Filter(s.tokens, s.match), req)
}

// SearchOffset returns page req.Page of q matches.
func (s *Service) SearchOffset(ctx context.Context, q SearchQuery, req repositorycache.OffsetRequest) (pagination.OffsetPage[Product], error) {
	if err := q.Validate(); err != nil {
		return pagination.OffsetPage[Product]{}, errs.Validation(err)
	}
	return s.offsets.Search(ctx, q.Filter(s.tokens, s.match), req)
}

// DecreaseQuantity takes qty units of product id out of stock. It joins
// the unit of work in ctx, or opens one. The cached product is dropped
// once the unit commits.
func (s *Service) DecreaseQuantity(ctx context.Context, id string, qty int) (Product, error) {
	if err := (validation.Errors{"qty": validation.Validate(qty, validation.Required, validation.Min(1))}).Filter(); err != nil {
		return Product{}, errs.Validation(err)
	}

	return uow.Transactional(ctx, s.unit, func(ctx context.Context) (Product, error) {
		updated, ok, err := s.store.ConditionalDecrement(ctx, id, qty)
		if err != nil {
			s.logger.Error().Err(err).Str("id", id).Int("qty", qty).Msg("decrease quantity failed")
			return Product{}, fmt.Errorf("decrease quantity: %w", err)
		}

		if !ok {
			// Only used to pick the error; the decrement already failed atomically.
			current, err := s.store.FindByID(ctx, id)
			if err != nil {
				return Product{}, err
			}
			return Product{}, errs.InsufficientStock(id, qty, current.Qty)
		}

		uow.AfterCommit(ctx, func(ctx context.Context) {
			s.source.Invalidate(ctx, id)
		})
		return updated, nil
	})
}
