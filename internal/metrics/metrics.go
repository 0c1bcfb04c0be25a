package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransportAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milesvalue_transport_attempts_total",
			Help: "Provider HTTP attempts by outcome kind",
		},
		[]string{"provider", "outcome"},
	)

	ProviderSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milesvalue_provider_searches_total",
			Help: "Provider searches by result source (api, fallback, error)",
		},
		[]string{"provider", "result"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "milesvalue_provider_search_duration_seconds",
			Help:    "Wall time of one provider search including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milesvalue_token_refreshes_total",
			Help: "Bearer token fetches per provider",
		},
		[]string{"provider", "status"},
	)

	AggregatedSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milesvalue_aggregated_searches_total",
			Help: "Aggregated searches by envelope source",
		},
		[]string{"source"},
	)

	ValuationDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milesvalue_valuation_duplicates_total",
			Help: "Program entries dropped by identity dedup",
		},
	)
)
