// Package codec reads and writes synth definition files: the big-endian
// "SCgf" version 1 container holding one or more compiled definitions.
//
// File layout:
//
//	int32   magic "SCgf"
//	int32   version (1)
//	int16   definition count
//	definition...
//
// Definition layout:
//
//	pstring name
//	int16   constant count, float32 value...
//	int16   parameter count, float32 default...
//	int16   named parameter count, (pstring name, int16 index)...
//	int16   node count, node...
//	int16   variant count (always 0)
//
// Node layout:
//
//	pstring op
//	int8    rate
//	int16   input count
//	int16   output count
//	int16   special index
//	(int16 node index or -1, int16 output or constant index)...
//	int8    output rate...
//
// A pstring is one length byte followed by that many bytes.
package codec

import (
	"bytes"
	"io"
	"time"

	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/metrics"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
)

const (
	// Magic is "SCgf" read as a big-endian int32
	Magic int32 = 0x53436766
	// Version is the only format version written and accepted
	Version int32 = 1

	// maxCount is the largest table size an int16 count can describe
	maxCount = 0xFFFF
	// constantRef marks a constant input in the node-index field
	constantRef = -1
)

// Diagnostic reasons recorded when a tolerated inconsistency is dropped
const (
	ReasonUnnamedControl   = "unnamed_control"
	ReasonOrphanName       = "orphan_name"
	ReasonOrphanParameter  = "orphan_parameter"
	ReasonDuplicateControl = "duplicate_name"
)

// Options configures a Codec
type Options struct {
	// Strict turns tolerated inconsistencies into errors
	Strict  bool
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Option is a functional option for configuring a Codec
type Option func(*Options)

// WithStrict enables or disables strict mode
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l logging.Logger) Option {
	return func(o *Options) {
		o.Logger = logging.OrNop(l)
	}
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(o *Options) {
		o.Metrics = r
	}
}

// Codec encodes and decodes definition files. It is stateless apart from its
// options and safe for concurrent use.
type Codec struct {
	options Options
	logger  logging.Logger
}

// New creates a codec. The default is tolerant mode with logging and metrics
// disabled.
func New(opts ...Option) *Codec {
	options := Options{Logger: logging.NopLogger{}}
	for _, opt := range opts {
		opt(&options)
	}
	return &Codec{
		options: options,
		logger:  options.Logger.With(logging.Component("codec")),
	}
}

// Strict reports whether the codec runs in strict mode
func (c *Codec) Strict() bool {
	return c.options.Strict
}

// Encode writes a file holding the single definition g
func (c *Codec) Encode(g *synthdef.CompiledGraph) ([]byte, error) {
	return c.EncodeAll(g)
}

// EncodeAll writes a file holding graphs in order. Nothing is returned on
// error.
func (c *Codec) EncodeAll(graphs ...*synthdef.CompiledGraph) ([]byte, error) {
	timer := logging.StartTimer(c.logger, "encode", logging.Count(len(graphs)))

	data, err := c.encodeFile(graphs)
	c.options.Metrics.RecordEncode(err, len(data))
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End(logging.Bytes(len(data)))
	return data, nil
}

// EncodeTo writes the encoded file for graphs to w
func (c *Codec) EncodeTo(w io.Writer, graphs ...*synthdef.CompiledGraph) error {
	data, err := c.EncodeAll(graphs...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reconstructs every definition in data
func (c *Codec) Decode(data []byte) ([]*synthdef.CompiledGraph, error) {
	start := time.Now()
	graphs, err := c.decodeFile(data)
	c.options.Metrics.RecordDecode(err, len(data), len(graphs))
	if err != nil {
		c.logger.Error("decode failed",
			logging.Bytes(len(data)), logging.Error(err), logging.Latency(time.Since(start)))
		return nil, err
	}
	c.logger.Debug("decode",
		logging.Bytes(len(data)), logging.Count(len(graphs)), logging.Latency(time.Since(start)))
	return graphs, nil
}

// DecodeReader reads r to the end and decodes it
func (c *Codec) DecodeReader(r io.Reader) ([]*synthdef.CompiledGraph, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return c.Decode(buf.Bytes())
}

// Encode writes g with a default tolerant codec
func Encode(g *synthdef.CompiledGraph) ([]byte, error) {
	return New().Encode(g)
}

// EncodeAll writes graphs with a default tolerant codec
func EncodeAll(graphs ...*synthdef.CompiledGraph) ([]byte, error) {
	return New().EncodeAll(graphs...)
}

// Decode reads data with a default tolerant codec
func Decode(data []byte) ([]*synthdef.CompiledGraph, error) {
	return New().Decode(data)
}

// DecodeReader reads r with a default tolerant codec
func DecodeReader(r io.Reader) ([]*synthdef.CompiledGraph, error) {
	return New().DecodeReader(r)
}
