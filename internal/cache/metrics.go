package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups served from a payload file.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspireq_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	// CacheMisses counts lookups with no current entry (or a missing payload file).
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspireq_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheStores counts payloads written.
	CacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspireq_cache_stores_total",
			Help: "Total number of responses written to the cache",
		},
	)

	// CacheCompacted counts stale index entries removed by compaction.
	CacheCompacted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspireq_cache_compacted_entries_total",
			Help: "Total number of stale cache entries removed by compaction",
		},
	)

	// CacheErrors counts failed cache operations.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspireq_cache_errors_total",
			Help: "Total number of response cache operation errors",
		},
		[]string{"operation"}, // "open", "lookup", "store", "compact"
	)
)
