// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_records_processed_total",
			Help: "Total number of license records processed per run stage",
		},
		[]string{"stage"},
	)

	EnrichmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_enrichment_failures_total",
			Help: "Total number of failed enrichment attempts",
		},
		[]string{"error_code"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "monitor_prediction_duration_seconds",
			Help: "Duration of rating prediction in seconds",
		},
		[]string{"outcome"},
	)

	BackendAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitor_store_backend_available",
			Help: "Whether a store backend answered its last health check (1/0)",
		},
		[]string{"backend"},
	)

	PlacesAPICost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_places_api_cost_dollars",
			Help: "Accumulated estimated place-lookup API spend in dollars",
		},
		[]string{"call_type"},
	)
)
