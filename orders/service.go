package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/uow"
)

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

// Service places orders.
type Service struct {
	store  Store
	stock  Stock
	unit   *uow.UnitOfWork
	logger zerolog.Logger
	now    func() time.Time
}

// NewService returns an order service. unit must be bound to the store that
// holds both products and orders so the decrement and the insert share a
// transaction.
func NewService(store Store, stock Stock, unit *uow.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		store:  store,
		stock:  stock,
		unit:   unit,
		logger: logging.NewLogger("orders"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create decrements the product stock and records the order in one unit of
// work. Either both happen or neither does.
func (s *Service) Create(ctx context.Context, in CreateOrder) (Order, error) {
	if err := in.Validate(); err != nil {
		return Order{}, errs.Validation(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Order{}, errs.Internal(err, "generate order id")
	}

	return uow.Transactional(ctx, s.unit, func(ctx context.Context) (Order, error) {
		if _, err := s.stock.DecreaseQuantity(ctx, in.ProductID, in.Qty); err != nil {
			return Order{}, err
		}

		now := s.now().UTC()
		o := Order{
			ID:           id.String(),
			ProductID:    in.ProductID,
			Qty:          in.Qty,
			Created:      now,
			LastModified: now,
		}
		if err := s.store.InsertOrder(ctx, o); err != nil {
			s.logger.Error().Err(err).Str("product", in.ProductID).Int("qty", in.Qty).Msg("insert order failed")
			return Order{}, fmt.Errorf("create order: %w", err)
		}

		s.logger.Debug().Str("order", o.ID).Str("product", o.ProductID).Int("qty", o.Qty).Msg("order created")
		return o, nil
	})
}

// Get returns order id.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.store.FindOrder(ctx, id)
}
