package catalog_test

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/catalog/catalogtest"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/internal/cacheinfra"
	"github.com/goliatone/go-catalog-cache/internal/store/memstore"
	"github.com/goliatone/go-catalog-cache/pkg/testsupport"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memstore.Store
	backend *cacheinfra.MemoryBackend
	service *catalog.Service
}

func newFixture(t *testing.T, match catalog.MatchPolicy) *fixture {
	t.Helper()

	backend, err := cacheinfra.NewMemoryBackend(cacheinfra.DefaultConfig())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}

	cfg := catalog.DefaultConfig()
	cfg.Match = match
	cfg.Cache.SlowQueryThreshold = 0

	store := memstore.New()
	service := catalog.NewService(store, backend, cfg,
		catalog.WithClock(testsupport.FixedClock(epoch)),
		catalog.WithIDGenerator(testsupport.SequentialIDs()),
		catalog.WithCacheOptions(repositorycache.WithSpawner(func(fn func()) { fn() })),
	)
	return &fixture{store: store, backend: backend, service: service}
}

func (f *fixture) seed(t *testing.T, n int) []catalog.Product {
	t.Helper()
	out := make([]catalog.Product, 0, n)
	for _, in := range catalogtest.Products(n) {
		p, err := f.service.Create(context.Background(), in)
		if err != nil {
			t.Fatalf("seed %s: %v", in.Album, err)
		}
		out = append(out, p)
	}
	return out
}

func (f *fixture) cached(t *testing.T, id string) bool {
	t.Helper()
	_, found, err := f.backend.Get(context.Background(), f.service.Source().Keys().EntityKey(id))
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	return found
}

func productIDs(items []catalog.Product) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestService_Create(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)

	p, err := f.service.Create(context.Background(), catalog.CreateProduct{
		Artist:   "  The Beatles ",
		Album:    "Abbey Road",
		Format:   catalog.FormatVinyl,
		Category: catalog.CategoryRock,
		Price:    29.9,
		Qty:      3,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if p.ID != testsupport.SequentialID(1) {
		t.Errorf("expected id %s, got %s", testsupport.SequentialID(1), p.ID)
	}
	if p.Artist != "The Beatles" {
		t.Errorf("expected trimmed artist, got %q", p.Artist)
	}
	if !p.Created.Equal(epoch) {
		t.Errorf("expected created %v, got %v", epoch, p.Created)
	}
	for _, token := range []string{"abb", "vinyl"} {
		if !slices.Contains(p.SearchTokens, token) {
			t.Errorf("expected token %q in %v", token, p.SearchTokens)
		}
	}
	if !f.cached(t, p.ID) {
		t.Error("new product must be written to the entity cache")
	}

	got, err := f.service.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Album != p.Album {
		t.Errorf("expected album %q, got %q", p.Album, got.Album)
	}
}

func TestService_CreateConflict(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	in := catalogtest.Products(1)[0]

	if _, err := f.service.Create(context.Background(), in); err != nil {
		t.Fatalf("first create: %v", err)
	}

	if _, err := f.service.Create(context.Background(), in); !errs.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)

	_, err := f.service.Create(context.Background(), catalog.CreateProduct{Artist: "Queen"})
	if !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if f.store.Len() != 0 {
		t.Errorf("expected empty store, got %d products", f.store.Len())
	}
}

func TestService_UpdateRecomputesTokens(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]
	album := "News of the World"

	updated, err := f.service.Update(context.Background(), p.ID, catalog.UpdateProduct{Album: &album})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !slices.Contains(updated.SearchTokens, "news") {
		t.Errorf("expected token news in %v", updated.SearchTokens)
	}
	if slices.Contains(updated.SearchTokens, "album") {
		t.Errorf("expected old album tokens gone from %v", updated.SearchTokens)
	}

	got, err := f.service.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Album != album {
		t.Errorf("cache must hold the committed value, got %q", got.Album)
	}
}

func TestService_UpdateKeepsTokensForOtherFields(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]
	price := 99.0

	updated, err := f.service.Update(context.Background(), p.ID, catalog.UpdateProduct{Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !reflect.DeepEqual(updated.SearchTokens, p.SearchTokens) {
		t.Errorf("expected tokens %v, got %v", p.SearchTokens, updated.SearchTokens)
	}
	if updated.Price != 99 {
		t.Errorf("expected price 99, got %v", updated.Price)
	}
}

func TestService_UpdateNotFound(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	price := 1.0

	_, err := f.service.Update(context.Background(), testsupport.SequentialID(42), catalog.UpdateProduct{Price: &price})
	if !errs.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

// racingStore commits a decrement from another writer between the
// service's read and its write.
type racingStore struct {
	*memstore.Store
	qty int
}

func (r *racingStore) Update(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if _, ok, err := r.Store.ConditionalDecrement(context.Background(), p.ID, r.qty); err != nil || !ok {
		return catalog.Product{}, fmt.Errorf("concurrent decrement: ok=%v err=%v", ok, err)
	}
	return r.Store.Update(ctx, p)
}

func TestService_UpdateKeepsConcurrentDecrement(t *testing.T) {
	backend, err := cacheinfra.NewMemoryBackend(cacheinfra.DefaultConfig())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}

	store := &racingStore{Store: memstore.New(), qty: 4}
	service := catalog.NewService(store, backend, catalog.DefaultConfig(),
		catalog.WithClock(testsupport.FixedClock(epoch)),
		catalog.WithIDGenerator(testsupport.SequentialIDs()),
		catalog.WithCacheOptions(repositorycache.WithSpawner(func(fn func()) { fn() })),
	)

	p, err := service.Create(context.Background(), catalogtest.Products(1)[0])
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Qty != 5 {
		t.Fatalf("expected qty 5, got %d", p.Qty)
	}

	price := 42.0
	updated, err := service.Update(context.Background(), p.ID, catalog.UpdateProduct{Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Qty != 1 || updated.Price != 42 {
		t.Errorf("expected qty 1 at price 42, got qty %d at price %v", updated.Qty, updated.Price)
	}

	stored, err := store.FindByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Qty != 1 {
		t.Errorf("expected stored qty 1, got %d", stored.Qty)
	}

	got, err := service.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Qty != 1 {
		t.Errorf("cache must hold the stored stock, got qty %d", got.Qty)
	}
}

func TestService_SearchCursorWalksAllPages(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	products := f.seed(t, 10)

	var seen []string
	req := repositorycache.CursorRequest{Limit: 3}
	for pages := 0; pages < 10; pages++ {
		page, err := f.service.SearchCursor(context.Background(), catalog.SearchQuery{}, req)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		seen = append(seen, productIDs(page.Data)...)
		if !page.HasNextPage {
			break
		}
		req.Cursor = *page.NextCursor
	}

	if !reflect.DeepEqual(seen, productIDs(products)) {
		t.Errorf("expected %v, got %v", productIDs(products), seen)
	}
}

func TestService_SearchFreeText(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	f.seed(t, 10)

	page, err := f.service.SearchCursor(context.Background(), catalog.SearchQuery{Q: "que"}, repositorycache.CursorRequest{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(page.Data) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(page.Data))
	}
	for _, p := range page.Data {
		if p.Artist != "Queen" {
			t.Errorf("expected Queen, got %s", p.Artist)
		}
	}
}

func TestService_SearchMatchPolicy(t *testing.T) {
	q := catalog.SearchQuery{Q: "queen cd"}

	anyWord := newFixture(t, catalog.MatchAny)
	anyWord.seed(t, 10)
	page, err := anyWord.service.SearchOffset(context.Background(), q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("any-word search: %v", err)
	}
	if page.TotalItems != 6 {
		t.Errorf("expected queen products plus every CD (6), got %d", page.TotalItems)
	}

	allWords := newFixture(t, catalog.MatchAll)
	allWords.seed(t, 10)
	page, err = allWords.service.SearchOffset(context.Background(), q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("all-word search: %v", err)
	}
	if page.TotalItems != 1 {
		t.Fatalf("expected 1 match, got %d", page.TotalItems)
	}
	if page.Data[0].Artist != "Queen" || page.Data[0].Format != catalog.FormatCD {
		t.Errorf("expected the Queen CD, got %s %s", page.Data[0].Artist, page.Data[0].Format)
	}
}

func TestService_FlushSearches(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	f.seed(t, 4)
	q := catalog.SearchQuery{Artist: "Radiohead"}

	before, err := f.service.SearchOffset(context.Background(), q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("first search: %v", err)
	}

	_, err = f.service.Create(context.Background(), catalog.CreateProduct{
		Artist: "Radiohead", Album: "Kid A", Format: catalog.FormatCD, Category: catalog.CategoryAlternative, Price: 12, Qty: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stale, err := f.service.SearchOffset(context.Background(), q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("cached search: %v", err)
	}
	if stale.TotalItems != before.TotalItems {
		t.Errorf("cached list is served until it expires, expected %d, got %d", before.TotalItems, stale.TotalItems)
	}

	f.service.FlushSearches(context.Background())

	fresh, err := f.service.SearchOffset(context.Background(), q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("fresh search: %v", err)
	}
	if fresh.TotalItems != before.TotalItems+1 {
		t.Errorf("expected %d after flush, got %d", before.TotalItems+1, fresh.TotalItems)
	}
}

func TestService_SearchOffset(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	products := f.seed(t, 10)

	page, err := f.service.SearchOffset(context.Background(), catalog.SearchQuery{}, repositorycache.OffsetRequest{Page: 2, Limit: 4})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if !reflect.DeepEqual(productIDs(page.Data), productIDs(products[4:8])) {
		t.Errorf("expected %v, got %v", productIDs(products[4:8]), productIDs(page.Data))
	}
	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
}

func TestService_SearchRejectsBadInput(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)

	_, err := f.service.SearchCursor(context.Background(), catalog.SearchQuery{}, repositorycache.CursorRequest{Cursor: "not-a-valid-id"})
	if !errs.IsInvalidCursor(err) {
		t.Errorf("expected invalid cursor, got %v", err)
	}

	_, err = f.service.SearchOffset(context.Background(), catalog.SearchQuery{}, repositorycache.OffsetRequest{Limit: 9999})
	if !errs.IsLimitExceeded(err) {
		t.Errorf("expected limit exceeded, got %v", err)
	}

	_, err = f.service.SearchOffset(context.Background(), catalog.SearchQuery{Format: "8-track"}, repositorycache.OffsetRequest{})
	if !errs.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_DecreaseQuantity(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]
	if !f.cached(t, p.ID) {
		t.Fatal("expected the seeded product to be cached")
	}

	updated, err := f.service.DecreaseQuantity(context.Background(), p.ID, 2)
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}

	if updated.Qty != 3 {
		t.Errorf("expected qty 3, got %d", updated.Qty)
	}
	if f.cached(t, p.ID) {
		t.Error("decrement must drop the cached product")
	}

	got, err := f.service.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Qty != 3 {
		t.Errorf("expected qty 3, got %d", got.Qty)
	}
}

func TestService_DecreaseQuantityInsufficient(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]

	_, err := f.service.DecreaseQuantity(context.Background(), p.ID, 6)
	if !errs.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	requested, available, ok := errs.StockShortfall(err)
	if !ok {
		t.Fatal("expected a stock shortfall")
	}
	if requested != 6 || available != 5 {
		t.Errorf("expected 6 requested with 5 available, got %d with %d", requested, available)
	}
	if !f.cached(t, p.ID) {
		t.Error("failed decrement must leave the cache alone")
	}
}

func TestService_DecreaseQuantityNotFound(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)

	_, err := f.service.DecreaseQuantity(context.Background(), testsupport.SequentialID(7), 1)
	if !errs.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_DecreaseQuantityRejectsNonPositive(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]

	for _, qty := range []int{0, -3} {
		_, err := f.service.DecreaseQuantity(context.Background(), p.ID, qty)
		if !errs.IsValidation(err) {
			t.Errorf("expected validation error for qty %d, got %v", qty, err)
		}
	}
}

func TestService_ConcurrentDecrementNeverOversells(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]

	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int32
		insufficient atomic.Int32
	)
	for range 12 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.DecreaseQuantity(context.Background(), p.ID, 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errs.IsInsufficientStock(err):
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 5 || insufficient.Load() != 7 {
		t.Errorf("expected 5 sold and 7 refused, got %d and %d", succeeded.Load(), insufficient.Load())
	}

	got, err := f.store.FindByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Qty != 0 {
		t.Errorf("expected qty 0, got %d", got.Qty)
	}
}

func TestService_DecreaseQuantityInsideAbortedUnit(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	p := f.seed(t, 1)[0]

	err := f.service.Unit().Run(context.Background(), func(ctx context.Context) error {
		if _, err := f.service.DecreaseQuantity(ctx, p.ID, 4); err != nil {
			return err
		}
		return errs.Conflict("order", "duplicate")
	})
	if !errs.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := f.store.FindByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Qty != 5 {
		t.Errorf("expected qty 5, got %d", got.Qty)
	}
	if !f.cached(t, p.ID) {
		t.Error("aborted unit must not run the invalidation")
	}
}

func TestService_EntityCacheKeys(t *testing.T) {
	f := newFixture(t, catalog.MatchAny)
	keys := f.service.Source().Keys()

	if got := keys.EntityKey("x"); got != "product:entity:x" {
		t.Errorf("expected product:entity:x, got %s", got)
	}
	if got, expected := keys.SearchPrefix(), cache.NewKeyBuilder("product").SearchPrefix(); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}
