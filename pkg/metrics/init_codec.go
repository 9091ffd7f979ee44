package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCodecMetrics() {
	r.EncodesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthgraph_encodes_total",
			Help: "Total number of definition files encoded",
		},
		[]string{"status"},
	)

	r.DecodesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthgraph_decodes_total",
			Help: "Total number of definition files decoded",
		},
		[]string{"status"},
	)

	r.CodecBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthgraph_codec_bytes_total",
			Help: "Bytes written by the encoder and read by the decoder",
		},
		[]string{"direction"},
	)

	r.DefinitionsDecoded = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synthgraph_definitions_decoded_total",
			Help: "Total number of definitions reconstructed by the decoder",
		},
	)

	r.DiagnosticsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthgraph_diagnostics_total",
			Help: "Tolerated inconsistencies whose entries were dropped",
		},
		[]string{"reason"},
	)
}
