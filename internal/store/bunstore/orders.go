package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/orders"
)

func newOrderRepository(db *bun.DB) repository.Repository[*orderRow] {
	return repository.NewRepository[*orderRow](db, repository.ModelHandlers[*orderRow]{
		NewRecord: func() *orderRow {
			return &orderRow{}
		},
		GetID: func(record *orderRow) uuid.UUID {
			return record.ID
		},
		SetID: func(record *orderRow, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
	})
}

// InsertOrder stores o in the ambient transaction, or its own.
func (s *Store) InsertOrder(ctx context.Context, o orders.Order) error {
	row, err := toOrderRow(o)
	if err != nil {
		return errs.Validation(fmt.Errorf("order id %q: %w", o.ID, err))
	}

	return s.write(ctx, func(ctx context.Context, idb bun.IDB) error {
		if _, err := s.orders.CreateTx(ctx, idb, row); err != nil {
			if isUniqueViolation(err) || hasCategory(err, goerrors.CategoryConflict) {
				return errs.Conflict("order", o.ID)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

func (s *Store) FindOrder(ctx context.Context, id string) (orders.Order, error) {
	row, err := s.orders.GetByIDTx(ctx, s.conn(ctx), id)
	if err != nil {
		if isRecordNotFound(err) {
			return orders.Order{}, errs.NotFound("order", id)
		}
		return orders.Order{}, fmt.Errorf("select order %s: %w", id, err)
	}
	return row.toOrder(), nil
}

// isRecordNotFound accepts both the driver sentinel and the repository's
// typed not found error.
func isRecordNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || hasCategory(err, goerrors.CategoryNotFound)
}

func hasCategory(err error, category goerrors.Category) bool {
	var typed *goerrors.Error
	return errors.As(err, &typed) && typed.Category == category
}
