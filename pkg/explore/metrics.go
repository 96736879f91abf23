package explore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adapterResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explore_adapter_results_total",
			Help: "Adapter outcomes (ok, absent, skipped, error)",
		},
		[]string{"adapter", "outcome"},
	)

	adapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explore_adapter_duration_seconds",
			Help:    "Adapter query duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"adapter"},
	)

	tickPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explore_tick_polls_total",
			Help: "Pool tick refreshes by outcome",
		},
		[]string{"outcome"},
	)
)
