// Command catalogdemo seeds a catalog and walks through cached searches,
// stock decrements and orders against the configured store and cache.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/config"
	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/orders"
	"github.com/goliatone/go-catalog-cache/pkg/di"
	"github.com/goliatone/go-catalog-cache/repositorycache"
)

var seed = []catalog.CreateProduct{
	{Artist: "Queen", Album: "A Night at the Opera", Format: catalog.FormatVinyl, Category: catalog.CategoryRock, Price: 29.99, Qty: 4},
	{Artist: "Queen", Album: "News of the World", Format: catalog.FormatCD, Category: catalog.CategoryRock, Price: 14.99, Qty: 10},
	{Artist: "The Beatles", Album: "Abbey Road", Format: catalog.FormatVinyl, Category: catalog.CategoryRock, Price: 34.5, Qty: 2},
	{Artist: "Miles Davis", Album: "Kind of Blue", Format: catalog.FormatVinyl, Category: catalog.CategoryJazz, Price: 27, Qty: 6},
	{Artist: "Radiohead", Album: "OK Computer", Format: catalog.FormatCassette, Category: catalog.CategoryAlternative, Price: 12, Qty: 3},
	{Artist: "Pink Floyd", Album: "The Dark Side of the Moon", Format: catalog.FormatCD, Category: catalog.CategoryRock, Price: 16.75, Qty: 8},
}

type configFiles []string

func (f *configFiles) String() string { return strings.Join(*f, ",") }
func (f *configFiles) Set(v string) error { *f = append(*f, v); return nil }

func main() {
	files := configFiles{}
	flag.Var(&files, "config", "YAML config file, may be repeated; later files win")
	query := flag.String("q", "queen", "free-text query used for the search steps")
	flag.Parse()

	if len(files) == 0 {
		files = configFiles{"config/config.yml", "config/config.local.yml"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, files, *query); err != nil {
		log.Fatal().Err(err).Msg("catalog demo failed")
	}
}

func run(ctx context.Context, files []string, q string) error {
	cfg, err := config.Load(files...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Step 1: building the container")
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close(context.Background())
	fmt.Printf("   cache=%s store=%s search ttl=%v\n\n", cfg.Cache.Driver, cfg.Store.Driver, cfg.Cache.SearchTTL)

	products := container.Catalog()

	fmt.Println("Step 2: seeding the catalog")
	var first catalog.Product
	for i, in := range seed {
		p, err := products.Create(ctx, in)
		if errs.IsConflict(err) {
			fmt.Printf("   skipped %s / %s: already present\n", in.Artist, in.Album)
			continue
		}
		if err != nil {
			return err
		}
		if i == 0 {
			first = p
		}
		fmt.Printf("   created %s %s / %s\n", p.ID, p.Artist, p.Album)
	}
	products.FlushSearches(ctx)
	fmt.Println()

	fmt.Printf("Step 3: cursor search for %q, cold, warm, then straight from the store\n", q)
	search := catalog.SearchQuery{Q: q}
	passes := []struct {
		label string
		ctx   context.Context
	}{
		{"cold", ctx},
		{"warm", ctx},
		{"live", repositorycache.WithCacheBypass(ctx)},
	}
	for _, pass := range passes {
		start := time.Now()
		page, err := products.SearchCursor(pass.ctx, search, repositorycache.CursorRequest{Limit: 2})
		if err != nil {
			return err
		}
		fmt.Printf("   %s: %d results, next page %v (took %v)\n", pass.label, len(page.Data), page.HasNextPage, time.Since(start))
	}
	fmt.Println()

	fmt.Println("Step 4: offset search over rock titles")
	page, err := products.SearchOffset(ctx, catalog.SearchQuery{Category: catalog.CategoryRock}, repositorycache.OffsetRequest{Page: 1, Limit: 3})
	if err != nil {
		return err
	}
	if err := printJSON(page); err != nil {
		return err
	}
	fmt.Println()

	if first.ID == "" {
		fmt.Println("Catalog was already seeded; skipping the order steps")
		return nil
	}

	fmt.Println("Step 5: ordering more than the stock holds")
	placed := 0
	for {
		_, err := container.Orders().Create(ctx, orders.CreateOrder{ProductID: first.ID, Qty: 3})
		if errs.IsInsufficientStock(err) {
			fmt.Printf("   rejected after %d orders: %v\n", placed, err)
			break
		}
		if err != nil {
			return err
		}
		placed++
	}

	current, err := products.Get(ctx, first.ID)
	if err != nil {
		return err
	}
	fmt.Printf("   %s now holds %d units\n", current.Album, current.Qty)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("   ", "  ")
	return enc.Encode(v)
}
