package graphql

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for GraphQL client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_requests_total",
		Help: "Total GraphQL requests by backend and status",
	}, []string{"backend", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graphql_request_duration_seconds",
		Help:    "GraphQL request duration in seconds by backend",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"backend"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_errors_total",
		Help: "Total GraphQL errors by backend and class",
	}, []string{"backend", "class"})

	deduplicatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_deduplicated_total",
		Help: "Total GraphQL requests answered by an identical in-flight request",
	}, []string{"backend"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_retries_total",
		Help: "Total number of retry attempts by backend and error class",
	}, []string{"backend", "error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graphql_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"backend", "error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"backend", "error_class"})

	cacheRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphql_cache_refreshes_total",
		Help: "Total number of background cache refreshes by result",
	}, []string{"backend", "result"})
)
