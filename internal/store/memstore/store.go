// Package memstore is an in-process product and order store.
//
// Writes are applied immediately and recorded in the session's undo log when
// they run inside a unit of work; aborting the session replays the log in
// reverse. Other goroutines can observe uncommitted writes.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/orders"
	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/uow"
)

// Store keeps products and orders in concurrent maps.
type Store struct {
	products *xsync.MapOf[string, catalog.Product]
	identity *xsync.MapOf[string, string]
	orders   *xsync.MapOf[string, orders.Order]
	now      func() time.Time
}

var (
	_ catalog.Store = (*Store)(nil)
	_ orders.Store  = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		products: xsync.NewMapOf[string, catalog.Product](),
		identity: xsync.NewMapOf[string, string](),
		orders:   xsync.NewMapOf[string, orders.Order](),
		now:      time.Now,
	}
}

// Len returns the number of stored products.
func (s *Store) Len() int {
	return s.products.Size()
}

type session struct {
	store *Store
	mu    sync.Mutex
	undo  []func()
	done  bool
}

// Begin opens a session with an empty undo log.
func (s *Store) Begin(ctx context.Context) (uow.Session, error) {
	return &session{store: s}, nil
}

func (t *session) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = nil
	t.done = true
	return nil
}

func (t *session) Abort(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
	return nil
}

// record registers fn to revert a write made under ctx's session.
func (s *Store) record(ctx context.Context, fn func()) {
	current, ok := uow.SessionFrom(ctx)
	if !ok {
		return
	}
	t, ok := current.(*session)
	if !ok || t.store != s {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.undo = append(t.undo, fn)
	}
}

func (s *Store) FindByID(ctx context.Context, id string) (catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Product{}, err
	}
	p, ok := s.products.Load(id)
	if !ok {
		return catalog.Product{}, errs.NotFound("product", id)
	}
	return p, nil
}

func (s *Store) FindIDs(ctx context.Context, filter query.Filter, limit int) ([]string, error) {
	matches, err := s.match(ctx, filter)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	ids := make([]string, len(matches))
	for i, p := range matches {
		ids[i] = p.ID
	}
	return ids, nil
}

func (s *Store) Find(ctx context.Context, filter query.Filter, skip, limit int) ([]catalog.Product, error) {
	matches, err := s.match(ctx, filter)
	if err != nil {
		return nil, err
	}
	if skip >= len(matches) {
		return []catalog.Product{}, nil
	}
	matches = matches[skip:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Store) Count(ctx context.Context, filter query.Filter) (int, error) {
	matches, err := s.match(ctx, filter)
	return len(matches), err
}

// match returns the products matching filter in ascending ID order.
func (s *Store) match(ctx context.Context, filter query.Filter) ([]catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		out      []catalog.Product
		matchErr error
	)
	s.products.Range(func(_ string, p catalog.Product) bool {
		ok, err := query.Match(filter, productField(p))
		if err != nil {
			matchErr = err
			return false
		}
		if ok {
			out = append(out, p)
		}
		return true
	})
	if matchErr != nil {
		return nil, matchErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func productField(p catalog.Product) query.Getter {
	return func(field string) (any, bool) {
		switch field {
		case catalog.FieldID:
			return p.ID, true
		case catalog.FieldArtist:
			return p.Artist, true
		case catalog.FieldAlbum:
			return p.Album, true
		case catalog.FieldFormat:
			return string(p.Format), true
		case catalog.FieldCategory:
			return string(p.Category), true
		case catalog.FieldPrice:
			return p.Price, true
		case catalog.FieldQty:
			return p.Qty, true
		case catalog.FieldSearchTokens:
			return p.SearchTokens, true
		}
		return nil, false
	}
}

func (s *Store) Insert(ctx context.Context, p catalog.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := p.IdentityKey()
	if _, taken := s.identity.LoadOrStore(key, p.ID); taken {
		return errs.Conflict("product", p.Artist+" / "+p.Album+" / "+string(p.Format))
	}
	s.products.Store(p.ID, p)

	s.record(ctx, func() {
		s.products.Delete(p.ID)
		s.identity.Delete(key)
	})
	return nil
}

// Update rewrites the product inside the map's per-key compute and keeps
// the stock held at that moment. The undo keeps the stock too, so an abort
// never reverts decrements made by other units.
func (s *Store) Update(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Product{}, err
	}

	previous, ok := s.products.Load(p.ID)
	if !ok {
		return catalog.Product{}, errs.NotFound("product", p.ID)
	}

	oldKey, newKey := previous.IdentityKey(), p.IdentityKey()
	if oldKey != newKey {
		if owner, taken := s.identity.LoadOrStore(newKey, p.ID); taken && owner != p.ID {
			return catalog.Product{}, errs.Conflict("product", p.Artist+" / "+p.Album+" / "+string(p.Format))
		}
	}

	found := false
	updated, _ := s.products.Compute(p.ID, func(current catalog.Product, loaded bool) (catalog.Product, bool) {
		if !loaded {
			return current, true
		}
		found = true
		previous = current
		next := p
		next.Qty = current.Qty
		return next, false
	})
	if !found {
		if oldKey != newKey {
			s.identity.Delete(newKey)
		}
		return catalog.Product{}, errs.NotFound("product", p.ID)
	}
	if oldKey != newKey {
		s.identity.Delete(oldKey)
	}

	s.record(ctx, func() {
		if oldKey != newKey {
			s.identity.Delete(newKey)
			s.identity.Store(oldKey, previous.ID)
		}
		s.products.Compute(previous.ID, func(current catalog.Product, loaded bool) (catalog.Product, bool) {
			if !loaded {
				return current, true
			}
			restored := previous
			restored.Qty = current.Qty
			return restored, false
		})
	})
	return updated, nil
}

// ConditionalDecrement applies the decrement inside the map's per-key
// compute so concurrent callers serialize on the product entry.
func (s *Store) ConditionalDecrement(ctx context.Context, id string, qty int) (catalog.Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Product{}, false, err
	}

	applied := false
	now := s.now().UTC()
	updated, _ := s.products.Compute(id, func(current catalog.Product, loaded bool) (catalog.Product, bool) {
		if !loaded {
			return current, true
		}
		if current.Qty < qty {
			return current, false
		}
		current.Qty -= qty
		current.LastModified = now
		applied = true
		return current, false
	})
	if !applied {
		return catalog.Product{}, false, nil
	}

	s.record(ctx, func() {
		s.products.Compute(id, func(current catalog.Product, loaded bool) (catalog.Product, bool) {
			if !loaded {
				return current, true
			}
			current.Qty += qty
			return current, false
		})
	})
	return updated, true, nil
}

func (s *Store) InsertOrder(ctx context.Context, o orders.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := s.orders.LoadOrStore(o.ID, o); exists {
		return errs.Conflict("order", o.ID)
	}
	s.record(ctx, func() {
		s.orders.Delete(o.ID)
	})
	return nil
}

func (s *Store) FindOrder(ctx context.Context, id string) (orders.Order, error) {
	if err := ctx.Err(); err != nil {
		return orders.Order{}, err
	}
	o, ok := s.orders.Load(id)
	if !ok {
		return orders.Order{}, errs.NotFound("order", id)
	}
	return o, nil
}
