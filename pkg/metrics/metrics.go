// Package metrics owns the process-wide Prometheus registry and the
// analysis-level metrics. Transport and cache metrics are defined next to
// the code that records them (pkg/client, pkg/cache, pkg/ratelimit) and are
// registered through promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

var (
	// AnalysesTotal counts token analyses by outcome (ok, partial, failed).
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "microanalyst_analyses_total",
		Help: "Total token analyses by outcome",
	}, []string{"outcome"})

	// AnalysisDuration observes end-to-end analysis time.
	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "microanalyst_analysis_duration_seconds",
		Help:    "Token analysis duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	// StreamClients tracks open websocket streams.
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "microanalyst_stream_clients",
		Help: "Number of connected dashboard stream clients",
	})
)

// Handler serves the default registry, which every promauto metric in the
// module registers with, in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - microanalyst_cache_hits_total{layer} (Counter): hits by layer (memory, disk, redis)
//   - microanalyst_cache_misses_total (Counter): misses
//   - microanalyst_cache_errors_total{operation} (Counter): store errors degraded to misses
//   - microanalyst_cache_expired_total{layer} (Counter): entries dropped after their TTL
//
// Upstream Metrics (pkg/client):
//   - microanalyst_upstream_requests_total{provider, status} (Counter)
//   - microanalyst_upstream_request_duration_seconds{provider} (Histogram)
//   - microanalyst_upstream_errors_total{provider, kind} (Counter)
//   - microanalyst_upstream_retries_total{provider} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - microanalyst_rate_limit_blocks_total{provider} (Counter)
//   - microanalyst_rate_limit_throttles_total{provider} (Counter)
//   - microanalyst_upstream_weight_used{provider} (Gauge)
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(microanalyst_cache_hits_total[5m])) /
//	(sum(rate(microanalyst_cache_hits_total[5m])) + sum(rate(microanalyst_cache_misses_total[5m])))
//
//	# Partial analyses (exchange data missing)
//	rate(microanalyst_analyses_total{outcome="partial"}[5m])
//
//	# P95 upstream latency
//	histogram_quantile(0.95, rate(microanalyst_upstream_request_duration_seconds_bucket[5m]))
