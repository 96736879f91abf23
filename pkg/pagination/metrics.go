package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagination_pages_total",
			Help: "Pages appended to a merged list",
		},
		[]string{"source"},
	)

	pageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagination_page_errors_total",
			Help: "Failed page fetches",
		},
		[]string{"source"},
	)

	stalePagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagination_stale_pages_total",
			Help: "Pages discarded because they were requested at an outdated offset",
		},
		[]string{"source"},
	)

	loadsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagination_loads_dropped_total",
			Help: "LoadMore calls dropped because a page was still in flight",
		},
	)

	loadsSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagination_loads_superseded_total",
			Help: "LoadMore calls whose pages were all discarded after a Reset",
		},
	)
)
