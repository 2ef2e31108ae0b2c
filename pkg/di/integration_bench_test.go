package di

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-catalog-cache/cache"
	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/config"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/orders"
	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/tokenizer"
)

// missBackend never holds anything, so every search is served live.
type missBackend struct{}

func (missBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (missBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (missBackend) Delete(context.Context, string) error { return nil }

// TestConcurrentAccess runs searches and reads from many goroutines against
// a shared container.
func TestConcurrentAccess(t *testing.T) {
	c := newCatalogContainer(t, config.StoreMemory)
	products := seedCatalog(t, c, 40)

	ctx := context.Background()
	const numGoroutines = 50
	const operationsPerGoroutine = 20

	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines*operationsPerGoroutine)

	// Launch concurrent workers
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				id := products[(workerID*operationsPerGoroutine+j)%len(products)].ID

				if _, err := c.Catalog().Get(ctx, id); err != nil {
					errors <- fmt.Errorf("worker %d operation %d Get failed: %v", workerID, j, err)
					continue
				}

				// Search every 5th iteration
				if j%5 == 0 {
					page, err := c.Catalog().SearchCursor(ctx, catalog.SearchQuery{Q: "rock"}, repositorycache.CursorRequest{Limit: 10})
					if err != nil {
						errors <- fmt.Errorf("worker %d operation %d SearchCursor failed: %v", workerID, j, err)
						continue
					}
					if len(page.Data) != 10 {
						errors <- fmt.Errorf("worker %d operation %d: expected 10 results, got %d", workerID, j, len(page.Data))
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		t.Error(err)
	}
}

// TestConcurrentOrdersNeverOversell places more orders than there is stock
// for, concurrently, on every store driver.
func TestConcurrentOrdersNeverOversell(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			c := newCatalogContainer(t, driver)
			product := seedCatalog(t, c, 1)[0]
			ctx := context.Background()

			const numGoroutines = 12
			var wg sync.WaitGroup
			var placed, rejected atomic.Int32
			unexpected := make(chan error, numGoroutines)

			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := c.Orders().Create(ctx, orders.CreateOrder{ProductID: product.ID, Qty: 1})
					switch {
					case err == nil:
						placed.Add(1)
					case errs.IsInsufficientStock(err):
						rejected.Add(1)
					default:
						unexpected <- err
					}
				}()
			}

			wg.Wait()
			close(unexpected)
			for err := range unexpected {
				t.Errorf("Unexpected order error: %v", err)
			}

			if placed.Load() != int32(product.Qty) {
				t.Errorf("Expected %d placed orders, got %d", product.Qty, placed.Load())
			}
			if rejected.Load() != numGoroutines-int32(product.Qty) {
				t.Errorf("Expected %d rejected orders, got %d", numGoroutines-product.Qty, rejected.Load())
			}

			got, err := c.Catalog().Get(ctx, product.ID)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Qty != 0 {
				t.Errorf("Expected stock 0, got %d", got.Qty)
			}
		})
	}
}

// TestSearchTTLExpiry verifies that an expired search list is rebuilt.
func TestSearchTTLExpiry(t *testing.T) {
	cfg := testConfig(t, config.StoreMemory)
	cfg.Cache.SearchTTL = 50 * time.Millisecond
	c := newTestContainer(t, cfg, WithCatalogOptions(
		catalog.WithCacheOptions(repositorycache.WithSpawner(syncSpawner)),
	))
	seedCatalog(t, c, 3)
	ctx := context.Background()

	q := catalog.SearchQuery{Category: catalog.CategoryRock}
	first, err := c.Catalog().SearchOffset(ctx, q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("SearchOffset() failed: %v", err)
	}

	filter := q.Filter(tokenizer.NewFieldTokenizer(catalog.TokenFields...), catalog.MatchAny)
	key := c.Catalog().Source().Keys().SearchKey(filter)
	if _, found, _ := c.Backend().Get(ctx, key); !found {
		t.Fatalf("Expected search list cached under %s", key)
	}

	time.Sleep(100 * time.Millisecond)

	if _, found, _ := c.Backend().Get(ctx, key); found {
		t.Error("Search list should have expired")
	}

	second, err := c.Catalog().SearchOffset(ctx, q, repositorycache.OffsetRequest{})
	if err != nil {
		t.Fatalf("SearchOffset() failed: %v", err)
	}
	if second.TotalItems != first.TotalItems {
		t.Errorf("Expected %d items after expiry, got %d", first.TotalItems, second.TotalItems)
	}
}

func BenchmarkSearchCursorCachedVsLive(b *testing.B) {
	q := catalog.SearchQuery{Q: "rock vinyl"}
	req := repositorycache.CursorRequest{Limit: 20}

	b.Run("Cached", func(b *testing.B) {
		c := newCatalogContainer(b, config.StoreMemory)
		seedCatalog(b, c, 500)
		ctx := context.Background()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := c.Catalog().SearchCursor(ctx, q, req); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Live", func(b *testing.B) {
		c := newTestContainer(b, testConfig(b, config.StoreMemory), WithBackend(missBackend{}))
		seedCatalog(b, c, 500)
		ctx := context.Background()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := c.Catalog().SearchCursor(ctx, q, req); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkSearchKeyGeneration(b *testing.B) {
	filters := map[string]query.Filter{
		"empty":    {},
		"equality": {catalog.FieldArtist: "Queen"},
		"combined": {
			catalog.FieldCategory:     "Rock",
			catalog.FieldPrice:        query.Ops{query.OpGTE: 10.0, query.OpLTE: 30.0},
			catalog.FieldSearchTokens: query.Ops{query.OpIn: []string{"dark", "moon", "side"}},
		},
	}
	keys := cache.NewKeyBuilder("product")

	for name, f := range filters {
		b.Run(name, func(b *testing.B) {
			for n := 0; n < b.N; n++ {
				_ = keys.SearchKey(f)
			}
		})
	}
}

func BenchmarkConcurrentCacheAccess(b *testing.B) {
	c := newCatalogContainer(b, config.StoreMemory)
	products := seedCatalog(b, c, 100)
	ctx := context.Background()

	// Warm the entity cache.
	for _, p := range products {
		if _, err := c.Catalog().Get(ctx, p.ID); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := c.Catalog().Get(ctx, products[i%len(products)].ID); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}
