// Package metrics serves the Prometheus metrics registered with promauto by
// the graphql, cache, ratelimit, pagination and explore packages, and lists
// them below.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is where promauto registers every metric of the module.
var Registry = prometheus.DefaultRegisterer

// Handler serves the metrics of the default registry in the Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/graphql):
//   - graphql_requests_total{backend, status} (Counter): HTTP round trips by backend and status
//   - graphql_request_duration_seconds{backend} (Histogram): Round trip duration by backend
//   - graphql_errors_total{backend, class} (Counter): Failed attempts by error class
//   - graphql_deduplicated_total{backend} (Counter): Queries answered by an identical in-flight query
//   - graphql_cache_refreshes_total{backend, result} (Counter): Background refreshes of aging cache entries
//
// Retry Metrics (pkg/graphql):
//   - graphql_retries_total{backend, error_class} (Counter): Retry attempts by error class
//   - graphql_retry_backoff_seconds{backend, error_class} (Histogram): Backoff duration by error class
//   - graphql_retry_exhausted_total{backend, error_class} (Counter): Queries that exhausted max attempts
//
// Cache Metrics (pkg/cache):
//   - graphql_cache_hits_total{backend} (Counter): Response cache hits
//   - graphql_cache_misses_total{backend} (Counter): Response cache misses
//   - graphql_cache_written_bytes_total{backend} (Counter): Compressed bytes written to Redis
//   - graphql_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - graphql_rate_limit_remaining{backend} (Gauge): Requests left in the current window
//   - graphql_rate_limit_blocks_total{backend} (Counter): Requests blocked at the critical threshold
//   - graphql_rate_limit_throttles_total{backend} (Counter): Requests delayed at the warning threshold
//
// Pagination Metrics (pkg/pagination):
//   - pagination_pages_total{source} (Counter): Pages appended by source
//   - pagination_page_errors_total{source} (Counter): Failed page fetches by source
//   - pagination_stale_pages_total{source} (Counter): Pages discarded after Reset or out of order
//   - pagination_loads_dropped_total (Counter): LoadMore calls dropped while a page was in flight
//   - pagination_loads_superseded_total (Counter): LoadMore calls whose pages were all discarded after Reset
//
// Adapter Metrics (pkg/explore):
//   - explore_adapter_results_total{adapter, outcome} (Counter): Adapter outcomes (ok, absent, skipped, error)
//   - explore_adapter_duration_seconds{adapter} (Histogram): Adapter query duration
//   - explore_tick_polls_total{outcome} (Counter): Pool tick polls by outcome
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(graphql_cache_hits_total[5m])) /
//   (sum(rate(graphql_cache_hits_total[5m])) + sum(rate(graphql_cache_misses_total[5m])))
//
//   # Rate Limit Headroom
//   graphql_rate_limit_remaining < 20
//
//   # Malformed Backend Rows
//   sum by (adapter) (rate(explore_adapter_results_total{outcome="error"}[5m]))
//
//   # P95 Query Latency
//   histogram_quantile(0.95, rate(graphql_request_duration_seconds_bucket[5m]))
