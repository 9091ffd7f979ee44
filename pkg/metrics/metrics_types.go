package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the compiler, codec and definition library.
// A nil *Registry is valid and records nothing.
type Registry struct {
	// Compiler Metrics
	CompilesTotal   *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	GraphNodes      prometheus.Histogram
	GraphConstants  prometheus.Histogram
	GraphControls   prometheus.Histogram

	// Codec Metrics
	EncodesTotal       *prometheus.CounterVec
	DecodesTotal       *prometheus.CounterVec
	CodecBytesTotal    *prometheus.CounterVec
	DefinitionsDecoded prometheus.Counter
	DiagnosticsTotal   *prometheus.CounterVec

	// Library Metrics
	LibraryOperationsTotal   *prometheus.CounterVec
	LibraryOperationDuration *prometheus.HistogramVec
	LibraryDefinitions       prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// Status label values
const (
	StatusSuccess       = "success"
	StatusStructural    = "structural"
	StatusFormat        = "format"
	StatusInconsistency = "inconsistency"
	StatusError         = "error"
)
