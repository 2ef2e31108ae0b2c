// Package bunstore is the SQL product and order store built on bun.
//
// Products live in the products table with their search tokens mirrored
// into product_tokens, one row per token, so that token filters run as
// indexed subqueries. Orders go through a go-repository-bun repository.
// sqlite, postgres and mysql are supported.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/internal/logging"
	"github.com/goliatone/go-catalog-cache/orders"
	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/uow"
)

// Store implements catalog.Store and orders.Store on a bun database.
type Store struct {
	db     *bun.DB
	orders repository.Repository[*orderRow]
	logger zerolog.Logger
	now    func() time.Time
}

var (
	_ catalog.Store = (*Store)(nil)
	_ orders.Store  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New wraps db.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		orders: newOrderRepository(db),
		logger: logging.NewLogger("bunstore"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{(*productRow)(nil), (*tokenRow)(nil), (*orderRow)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", model, err)
		}
	}

	// mysql has no CREATE INDEX IF NOT EXISTS; token lookups use the primary key there.
	if s.db.Dialect().Name() == dialect.MySQL {
		return nil
	}

	indexes := []*bun.CreateIndexQuery{
		s.db.NewCreateIndex().Model((*tokenRow)(nil)).Index("product_tokens_token_idx").Column("token").IfNotExists(),
		s.db.NewCreateIndex().Model((*orderRow)(nil)).Index("orders_product_idx").Column("product_id").IfNotExists(),
	}
	for _, index := range indexes {
		if _, err := index.Exec(ctx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

type session struct {
	db *bun.DB
	tx bun.Tx
}

// Begin opens a database transaction.
func (s *Store) Begin(ctx context.Context) (uow.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &session{db: s.db, tx: tx}, nil
}

func (t *session) Commit(context.Context) error { return t.tx.Commit() }
func (t *session) Abort(context.Context) error  { return t.tx.Rollback() }

// tx returns the transaction of the unit of work in ctx.
func (s *Store) tx(ctx context.Context) (bun.Tx, bool) {
	if current, ok := uow.SessionFrom(ctx); ok {
		if t, ok := current.(*session); ok && t.db == s.db {
			return t.tx, true
		}
	}
	return bun.Tx{}, false
}

// conn returns the ambient transaction, or the database.
func (s *Store) conn(ctx context.Context) bun.IDB {
	if tx, ok := s.tx(ctx); ok {
		return tx
	}
	return s.db
}

// write runs fn in the ambient transaction, or in a transaction of its own.
func (s *Store) write(ctx context.Context, fn func(ctx context.Context, idb bun.IDB) error) error {
	if tx, ok := s.tx(ctx); ok {
		return fn(ctx, tx)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

func (s *Store) selectProducts(ctx context.Context, model any, filter query.Filter) (*bun.SelectQuery, error) {
	idb := s.conn(ctx)
	return applyFilter(idb, idb.NewSelect().Model(model), filter)
}

func (s *Store) FindIDs(ctx context.Context, filter query.Filter, limit int) ([]string, error) {
	q, err := s.selectProducts(ctx, (*productRow)(nil), filter)
	if err != nil {
		return nil, err
	}

	q = q.Column("p.id").OrderExpr("p.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	ids := []string{}
	if err := q.Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("select product ids: %w", err)
	}
	return ids, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (catalog.Product, error) {
	return findProduct(ctx, s.conn(ctx), id)
}

func findProduct(ctx context.Context, idb bun.IDB, id string) (catalog.Product, error) {
	row := new(productRow)
	err := idb.NewSelect().Model(row).Where("? = ?", bun.Ident("p.id"), id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, errs.NotFound("product", id)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("select product %s: %w", id, err)
	}
	return row.toProduct(), nil
}

func (s *Store) Find(ctx context.Context, filter query.Filter, skip, limit int) ([]catalog.Product, error) {
	var rows []productRow
	q, err := s.selectProducts(ctx, &rows, filter)
	if err != nil {
		return nil, err
	}

	q = q.OrderExpr("p.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if skip > 0 {
		q = q.Offset(skip)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	out := make([]catalog.Product, len(rows))
	for i := range rows {
		out[i] = rows[i].toProduct()
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, filter query.Filter) (int, error) {
	q, err := s.selectProducts(ctx, (*productRow)(nil), filter)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *Store) Insert(ctx context.Context, p catalog.Product) error {
	return s.write(ctx, func(ctx context.Context, idb bun.IDB) error {
		if _, err := idb.NewInsert().Model(toProductRow(p)).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return errs.Conflict("product", identity(p))
			}
			return fmt.Errorf("insert product: %w", err)
		}
		return s.replaceTokens(ctx, idb, p)
	})
}

// Update rewrites every column but qty, so decrements committed since p
// was read survive, and reads the row back in the same transaction.
func (s *Store) Update(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	var updated catalog.Product
	err := s.write(ctx, func(ctx context.Context, idb bun.IDB) error {
		res, err := idb.NewUpdate().Model(toProductRow(p)).ExcludeColumn("qty").WherePK().Exec(ctx)
		if err != nil {
			if isUniqueViolation(err) {
				return errs.Conflict("product", identity(p))
			}
			return fmt.Errorf("update product %s: %w", p.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return errs.NotFound("product", p.ID)
		}
		if err := s.replaceTokens(ctx, idb, p); err != nil {
			return err
		}
		updated, err = findProduct(ctx, idb, p.ID)
		return err
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return updated, nil
}

func (s *Store) replaceTokens(ctx context.Context, idb bun.IDB, p catalog.Product) error {
	if _, err := idb.NewDelete().Model((*tokenRow)(nil)).Where("? = ?", bun.Ident("product_id"), p.ID).Exec(ctx); err != nil {
		return fmt.Errorf("delete product tokens: %w", err)
	}

	rows := tokenRows(p)
	if len(rows) == 0 {
		return nil
	}
	if _, err := idb.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert product tokens: %w", err)
	}
	return nil
}

// ConditionalDecrement issues a single guarded UPDATE. Zero affected rows
// means the product is absent or holds less than qty.
func (s *Store) ConditionalDecrement(ctx context.Context, id string, qty int) (catalog.Product, bool, error) {
	idb := s.conn(ctx)

	res, err := idb.NewUpdate().
		Model((*productRow)(nil)).
		Set("? = ? - ?", bun.Ident("qty"), bun.Ident("qty"), qty).
		Set("? = ?", bun.Ident("last_modified"), s.now().UTC()).
		Where("? = ?", bun.Ident("id"), id).
		Where("? >= ?", bun.Ident("qty"), qty).
		Exec(ctx)
	if err != nil {
		return catalog.Product{}, false, fmt.Errorf("decrement product %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return catalog.Product{}, false, fmt.Errorf("decrement product %s: %w", id, err)
	}
	if n == 0 {
		return catalog.Product{}, false, nil
	}

	updated, err := s.FindByID(ctx, id)
	if err != nil {
		return catalog.Product{}, false, err
	}
	return updated, true, nil
}

func identity(p catalog.Product) string {
	return p.Artist + " / " + p.Album + " / " + string(p.Format)
}
