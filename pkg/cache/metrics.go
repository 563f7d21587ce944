package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups served by a layer: memory, disk or redis.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microanalyst_cache_hits_total",
			Help: "Cache lookups answered without an upstream request, by layer",
		},
		[]string{"layer"},
	)

	// CacheMisses counts lookups that fell through every layer.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "microanalyst_cache_misses_total",
			Help: "Cache lookups that required an upstream request",
		},
	)

	// CacheExpired counts entries dropped after their TTL, either lazily on
	// lookup or by the purge when a disk cache is opened.
	CacheExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microanalyst_cache_expired_total",
			Help: "Cache entries removed because their TTL elapsed, by layer",
		},
		[]string{"layer"},
	)

	// CacheErrors counts store failures that were degraded to misses.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "microanalyst_cache_errors_total",
			Help: "Cache store failures, by operation (get, set, delete, clear)",
		},
		[]string{"operation"},
	)
)
