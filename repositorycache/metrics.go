package repositorycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache layers and resolution tiers used as metric labels.
const (
	layerEntity = "entity"
	layerSearch = "search"

	modeCursor = "cursor"
	modeOffset = "offset"

	tierCache     = "cache"
	tierRefreshed = "refreshed"
	tierLive      = "live"
)

var (
	// CacheHits tracks cache hits by layer (entity, search)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks swallowed cache backend failures
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of catalog cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "decode"
	)

	// Resolutions tracks which tier served each paginated search
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_search_resolutions_total",
			Help: "Paginated searches by mode and serving tier",
		},
		[]string{"mode", "tier"},
	)

	// StoreDuration observes store calls made on behalf of the caches
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_store_duration_seconds",
			Help:    "Duration of store calls issued by the cache layer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
