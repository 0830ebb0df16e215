package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchDuration tracks how long passage searches take.
	// Labels: provider (chromem, qdrant)
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mcqrouter",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of passage searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// SearchTotal counts passage searches.
	// Labels: provider, result (success, error)
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcqrouter",
			Subsystem: "vectorstore",
			Name:      "searches_total",
			Help:      "Total number of passage searches",
		},
		[]string{"provider", "result"},
	)

	// HealthCheckTotal counts backend health checks.
	// Labels: result (success, error)
	HealthCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcqrouter",
			Subsystem: "vectorstore",
			Name:      "health_checks_total",
			Help:      "Total number of health check operations",
		},
		[]string{"result"},
	)
)

func observeSearch(provider string, start time.Time, err error) {
	SearchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	SearchTotal.WithLabelValues(provider, result).Inc()
}
