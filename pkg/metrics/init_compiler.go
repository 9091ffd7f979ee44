package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sizeBuckets = []float64{1, 4, 16, 64, 256, 1024, 4096, 16384, 65535}

func (r *Registry) initCompilerMetrics() {
	r.CompilesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthgraph_compiles_total",
			Help: "Total number of graph compilations",
		},
		[]string{"status"},
	)

	r.CompileDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthgraph_compile_duration_seconds",
			Help:    "Graph compilation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.GraphNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthgraph_graph_nodes",
			Help:    "Number of nodes in compiled graphs",
			Buckets: sizeBuckets,
		},
	)

	r.GraphConstants = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthgraph_graph_constants",
			Help:    "Number of constant table entries in compiled graphs",
			Buckets: sizeBuckets,
		},
	)

	r.GraphControls = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthgraph_graph_controls",
			Help:    "Number of control descriptors in compiled graphs",
			Buckets: sizeBuckets,
		},
	)
}
