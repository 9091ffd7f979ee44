package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLibraryMetrics() {
	r.LibraryOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthgraph_library_operations_total",
			Help: "Total number of definition library operations",
		},
		[]string{"operation", "status"},
	)

	r.LibraryOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthgraph_library_operation_duration_seconds",
			Help:    "Definition library operation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	r.LibraryDefinitions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "synthgraph_library_definitions",
			Help: "Number of definitions stored in the library",
		},
	)
}
