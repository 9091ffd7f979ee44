// Package compiler turns an in-memory unit-generator graph into a
// topologically ordered synth definition.
package compiler

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/synthgraph/pkg/algorithms"
	"github.com/dd0wney/synthgraph/pkg/collector"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/metrics"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// TempPrefix starts the generated name of anonymous definitions
const TempPrefix = "temp__"

// Options configures a Compiler
type Options struct {
	Policy  synthdef.DedupPolicy
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// DefaultOptions returns identity dedup with logging and metrics disabled
func DefaultOptions() Options {
	return Options{
		Policy: synthdef.DedupByIdentity,
		Logger: logging.NopLogger{},
	}
}

// Option is a functional option for configuring a Compiler
type Option func(*Options)

// WithPolicy sets the constant dedup policy
func WithPolicy(p synthdef.DedupPolicy) Option {
	return func(o *Options) {
		o.Policy = p
	}
}

// WithLogger sets the logger
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

// Compiler compiles graphs. It holds no per-compile state and is safe for
// concurrent use as long as the graphs it compiles are not being mutated.
type Compiler struct {
	options Options
	logger  logging.Logger
}

// New creates a compiler
func New(opts ...Option) *Compiler {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Compiler{
		options: options,
		logger:  options.Logger.With(logging.Component("compiler")),
	}
}

// Policy returns the constant dedup policy in use
func (c *Compiler) Policy() synthdef.DedupPolicy {
	return c.options.Policy
}

// Compile collects everything reachable from roots, orders it and returns the
// compiled definition. An empty name gets a generated temp__ name. Nothing
// reachable from roots is modified.
func (c *Compiler) Compile(name string, roots ...ugen.Element) (*synthdef.CompiledGraph, error) {
	if name == "" {
		name = TempPrefix + uuid.NewString()
	}

	start := time.Now()
	timer := logging.StartTimer(c.logger, "compile", logging.Definition(name))

	g, err := c.compile(name, roots)

	if err != nil {
		timer.EndError(err)
		c.options.Metrics.RecordCompile(err, time.Since(start), 0, 0, 0)
		return nil, err
	}

	timer.End(
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("constants", len(g.Constants)),
		logging.Int("controls", len(g.Controls)),
	)
	c.options.Metrics.RecordCompile(nil, time.Since(start), len(g.Nodes), len(g.Constants), len(g.Controls))
	return g, nil
}

func (c *Compiler) compile(name string, roots []ugen.Element) (*synthdef.CompiledGraph, error) {
	res := collector.Collect(roots, c.options.Policy)

	specials := make(map[*ugen.UGen]int, len(res.Nodes))
	for i, u := range res.Nodes {
		specials[u] = res.Specials[i]
	}

	sorted, err := algorithms.Sequence(res.Nodes)
	if err != nil {
		var serr *synthdef.Error
		if errors.As(err, &serr) {
			serr.Definition = name
		}
		return nil, err
	}

	g := &synthdef.CompiledGraph{
		Name:      name,
		Nodes:     make([]synthdef.Node, len(sorted)),
		Constants: res.Constants,
		Controls:  res.Controls.Descriptors(),
		Policy:    c.options.Policy,
	}
	for i, u := range sorted {
		g.Nodes[i] = synthdef.Node{UGen: u, Special: specials[u]}
		c.logger.Debug("sequenced node",
			logging.Definition(name), logging.NodeIndex(i), logging.Op(u.Op))
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Compile compiles roots with default options
func Compile(name string, roots ...ugen.Element) (*synthdef.CompiledGraph, error) {
	return New().Compile(name, roots...)
}
