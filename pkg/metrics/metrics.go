package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/synthgraph/pkg/synthdef"
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initCompilerMetrics()
	r.initCodecMetrics()
	r.initLibraryMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Gather collects the current metric families
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	if r == nil {
		return nil, nil
	}
	return r.registry.Gather()
}

// Status maps an operation result to a status label
func Status(err error) string {
	if err == nil {
		return StatusSuccess
	}
	switch synthdef.KindOf(err) {
	case synthdef.KindStructural:
		return StatusStructural
	case synthdef.KindFormat:
		return StatusFormat
	case synthdef.KindInconsistency:
		return StatusInconsistency
	default:
		return StatusError
	}
}

// RecordCompile records one compilation and, on success, the graph's table sizes
func (r *Registry) RecordCompile(err error, duration time.Duration, nodes, constants, controls int) {
	if r == nil {
		return
	}
	r.CompilesTotal.WithLabelValues(Status(err)).Inc()
	r.CompileDuration.Observe(duration.Seconds())
	if err != nil {
		return
	}
	r.GraphNodes.Observe(float64(nodes))
	r.GraphConstants.Observe(float64(constants))
	r.GraphControls.Observe(float64(controls))
}

// RecordEncode records one encoded file
func (r *Registry) RecordEncode(err error, bytes int) {
	if r == nil {
		return
	}
	r.EncodesTotal.WithLabelValues(Status(err)).Inc()
	if err == nil {
		r.CodecBytesTotal.WithLabelValues("encode").Add(float64(bytes))
	}
}

// RecordDecode records one decoded file and the definitions it held
func (r *Registry) RecordDecode(err error, bytes, definitions int) {
	if r == nil {
		return
	}
	r.DecodesTotal.WithLabelValues(Status(err)).Inc()
	r.CodecBytesTotal.WithLabelValues("decode").Add(float64(bytes))
	if err == nil {
		r.DefinitionsDecoded.Add(float64(definitions))
	}
}

// RecordDiagnostic counts one dropped entry
func (r *Registry) RecordDiagnostic(reason string) {
	if r == nil {
		return
	}
	r.DiagnosticsTotal.WithLabelValues(reason).Inc()
}

// RecordLibraryOperation records a definition library operation
func (r *Registry) RecordLibraryOperation(operation string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	r.LibraryOperationsTotal.WithLabelValues(operation, Status(err)).Inc()
	r.LibraryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetLibraryDefinitions sets the number of stored definitions
func (r *Registry) SetLibraryDefinitions(n int) {
	if r == nil {
		return
	}
	r.LibraryDefinitions.Set(float64(n))
}
