package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphql_cache_hits_total",
			Help: "Total number of GraphQL response cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphql_cache_misses_total",
			Help: "Total number of GraphQL response cache misses",
		},
		[]string{"backend"},
	)

	// CacheBytesWritten tracks compressed bytes written to Redis by backend
	CacheBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphql_cache_written_bytes_total",
			Help: "Total compressed bytes written to the GraphQL response cache",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphql_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
