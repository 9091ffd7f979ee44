package codec

import (
	"math"

	"github.com/dd0wney/synthgraph/pkg/controls"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

func (c *Codec) encodeFile(graphs []*synthdef.CompiledGraph) ([]byte, error) {
	if len(graphs) > maxCount {
		return nil, synthdef.Structural("encode").Index(len(graphs)).
			Context("%d definitions in one file", len(graphs)).
			Cause(synthdef.ErrTooMany).Err()
	}

	w := &writer{}
	w.int32(Magic)
	w.int32(Version)
	w.uint16(len(graphs))

	for _, g := range graphs {
		if err := c.encodeDefinition(w, g); err != nil {
			return nil, err
		}
	}

	if w.err != nil {
		return nil, w.err
	}
	return w.bytes(), nil
}

func checkName(g *synthdef.CompiledGraph, name, what string) *synthdef.ErrorBuilder {
	if len(name) <= synthdef.MaxNameLength {
		return nil
	}
	return synthdef.Structural("encode").Definition(g.Name).
		Context("%s is %d bytes", what, len(name)).
		Cause(synthdef.ErrNameTooLong)
}

func checkCount(g *synthdef.CompiledGraph, n int, what string) error {
	if n <= maxCount {
		return nil
	}
	return synthdef.Structural("encode").Definition(g.Name).Index(n).
		Context("%d %s", n, what).
		Cause(synthdef.ErrTooMany).Err()
}

func (c *Codec) encodeDefinition(w *writer, g *synthdef.CompiledGraph) error {
	if b := checkName(g, g.Name, "definition name"); b != nil {
		return b.Err()
	}
	if err := checkCount(g, len(g.Constants), "constants"); err != nil {
		return err
	}
	if err := checkCount(g, len(g.Controls), "parameters"); err != nil {
		return err
	}
	if err := checkCount(g, len(g.Nodes), "nodes"); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}

	w.pstring(g.Name)

	w.uint16(len(g.Constants))
	for _, k := range g.Constants {
		w.float32(k.Value)
	}

	w.uint16(len(g.Controls))
	for _, d := range g.Controls {
		w.float32(d.Default)
	}

	named, err := c.namedEntries(g)
	if err != nil {
		return err
	}
	w.uint16(len(named))
	for _, e := range named {
		w.pstring(e.Name)
		w.uint16(e.Index)
	}

	w.uint16(len(g.Nodes))
	nodeIdx := g.NodeIndex()
	constIdx := g.ConstantIndex()
	for i, n := range g.Nodes {
		if err := encodeNode(w, g, i, n, nodeIdx, constIdx); err != nil {
			return err
		}
	}

	// Variants are not supported
	w.uint16(0)

	c.logger.Debug("encoded definition",
		logging.Definition(g.Name),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("constants", len(g.Constants)),
		logging.Int("controls", len(g.Controls)))
	return nil
}

// namedEntries builds the name table. Unnamed descriptors are left out: an
// error in strict mode, a diagnostic otherwise.
func (c *Codec) namedEntries(g *synthdef.CompiledGraph) ([]controls.NamedEntry, error) {
	reg := g.Registry()
	for _, i := range reg.Unnamed() {
		if c.options.Strict {
			return nil, synthdef.Structural("encode").Definition(g.Name).Index(i).
				Context("parameter has no name").
				Cause(synthdef.ErrUnnamedControl).Err()
		}
		c.logger.Warn("unnamed control left out of name table",
			logging.Definition(g.Name), logging.ControlIndex(i))
		c.options.Metrics.RecordDiagnostic(ReasonUnnamedControl)
	}

	named := reg.Named()
	for _, e := range named {
		if b := checkName(g, e.Name, "control name"); b != nil {
			return nil, b.Index(e.Index).Err()
		}
	}
	return named, nil
}

func encodeNode(w *writer, g *synthdef.CompiledGraph, i int, n synthdef.Node,
	nodeIdx map[*ugen.UGen]int, constIdx map[any]int) error {
	u := n.UGen
	structural := func() *synthdef.ErrorBuilder {
		return synthdef.Structural("encode").Definition(g.Name).Node(i, u.Op)
	}

	if len(u.Op) > synthdef.MaxNameLength {
		return structural().Context("operator name is %d bytes", len(u.Op)).
			Cause(synthdef.ErrNameTooLong).Err()
	}
	if len(u.Inputs) > maxCount || len(u.Outputs) > maxCount {
		return structural().Context("%d inputs, %d outputs", len(u.Inputs), len(u.Outputs)).
			Cause(synthdef.ErrTooMany).Err()
	}
	if n.Special < 0 || n.Special > maxCount {
		return structural().Index(n.Special).Context("special index out of range").
			Cause(synthdef.ErrTooMany).Err()
	}

	w.pstring(u.Op)
	w.int8(uint8(u.Rate))
	w.uint16(len(u.Inputs))
	w.uint16(len(u.Outputs))
	w.uint16(n.Special)

	for j, in := range u.Inputs {
		switch v := in.(type) {
		case ugen.OutputRef:
			pos := nodeIdx[v.Node]
			if pos > math.MaxInt16 || v.Index > maxCount {
				return structural().Index(j).
					Context("reference to node %d output %d", pos, v.Index).
					Cause(synthdef.ErrTooMany).Err()
			}
			w.int16(pos)
			w.uint16(v.Index)
		case *ugen.Constant:
			w.int16(constantRef)
			w.uint16(constIdx[g.Policy.Key(v)])
		}
	}

	for _, rate := range u.Outputs {
		w.int8(uint8(rate))
	}
	return nil
}
