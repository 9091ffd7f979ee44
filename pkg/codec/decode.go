package codec

import (
	"github.com/dd0wney/synthgraph/pkg/controls"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// nameEntry is one row of the named parameter table as read from the stream
type nameEntry struct {
	name   string
	index  int
	offset int
}

func (c *Codec) decodeFile(data []byte) ([]*synthdef.CompiledGraph, error) {
	r := &reader{data: data}

	magic, err := r.int32("magic")
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, r.formatError().Offset(0).
			Context("got %#08x", uint32(magic)).
			Cause(synthdef.ErrBadMagic).Err()
	}

	version, err := r.int32("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, r.formatError().Offset(4).
			Context("version %d", version).
			Cause(synthdef.ErrBadVersion).Err()
	}

	count, err := r.uint16("definition count")
	if err != nil {
		return nil, err
	}

	graphs := make([]*synthdef.CompiledGraph, 0, count)
	for i := 0; i < count; i++ {
		g, err := c.decodeDefinition(r)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}

	if r.remaining() > 0 {
		return nil, synthdef.Format("decode").Offset(r.off).
			Context("%d bytes after definition %d", r.remaining(), count).
			Cause(synthdef.ErrTrailingData).Err()
	}
	return graphs, nil
}

func (c *Codec) decodeDefinition(r *reader) (*synthdef.CompiledGraph, error) {
	r.def = ""
	name, err := r.pstring("definition name")
	if err != nil {
		return nil, err
	}
	r.def = name

	numConstants, err := r.uint16("constant count")
	if err != nil {
		return nil, err
	}
	constants := make([]*ugen.Constant, numConstants)
	for i := range constants {
		v, err := r.float32("constant")
		if err != nil {
			return nil, err
		}
		constants[i] = ugen.Const(v)
	}

	numParams, err := r.uint16("parameter count")
	if err != nil {
		return nil, err
	}
	paramStart := r.off
	defaults := make([]float32, numParams)
	for i := range defaults {
		if defaults[i], err = r.float32("parameter default"); err != nil {
			return nil, err
		}
	}

	numNamed, err := r.uint16("named parameter count")
	if err != nil {
		return nil, err
	}
	names := make([]nameEntry, numNamed)
	for i := range names {
		names[i].offset = r.off
		if names[i].name, err = r.pstring("parameter name"); err != nil {
			return nil, err
		}
		if names[i].index, err = r.uint16("parameter index"); err != nil {
			return nil, err
		}
	}

	numNodes, err := r.uint16("node count")
	if err != nil {
		return nil, err
	}
	nodes := make([]synthdef.Node, numNodes)
	for i := range nodes {
		if nodes[i], err = decodeNode(r, i, nodes[:i], constants, numParams); err != nil {
			return nil, err
		}
	}

	variantOff := r.off
	numVariants, err := r.uint16("variant count")
	if err != nil {
		return nil, err
	}
	if numVariants != 0 {
		return nil, synthdef.Structural("decode").Definition(name).Offset(variantOff).
			Context("%d variants", numVariants).
			Cause(synthdef.ErrUnsupportedVariants).Err()
	}

	g := &synthdef.CompiledGraph{
		Name:      name,
		Nodes:     nodes,
		Constants: constants,
		Policy:    synthdef.DedupByIdentity,
	}
	if err := c.resolveControls(g, defaults, paramStart, names); err != nil {
		return nil, err
	}

	c.logger.Debug("decoded definition",
		logging.Definition(name),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("constants", len(g.Constants)),
		logging.Int("controls", len(g.Controls)))
	return g, nil
}

func decodeNode(r *reader, i int, earlier []synthdef.Node, constants []*ugen.Constant, numParams int) (synthdef.Node, error) {
	start := r.off
	op, err := r.pstring("operator name")
	if err != nil {
		return synthdef.Node{}, err
	}
	bad := func(off int) *synthdef.ErrorBuilder {
		return r.formatError().Node(i, op).Offset(off)
	}

	rateOff := r.off
	rate, err := readRate(r, "node rate")
	if err != nil {
		return synthdef.Node{}, err
	}
	if !rate.Valid() {
		return synthdef.Node{}, bad(rateOff).Index(int(rate)).Cause(synthdef.ErrBadRate).Err()
	}

	numInputs, err := r.uint16("input count")
	if err != nil {
		return synthdef.Node{}, err
	}
	numOutputs, err := r.uint16("output count")
	if err != nil {
		return synthdef.Node{}, err
	}
	special, err := r.uint16("special index")
	if err != nil {
		return synthdef.Node{}, err
	}

	inputs := make([]ugen.Input, numInputs)
	for j := range inputs {
		off := r.off
		src, err := r.int16("input node")
		if err != nil {
			return synthdef.Node{}, err
		}
		idx, err := r.uint16("input index")
		if err != nil {
			return synthdef.Node{}, err
		}

		if src == constantRef {
			if idx >= len(constants) {
				return synthdef.Node{}, bad(off).Index(j).
					Context("constant %d of %d", idx, len(constants)).
					Cause(synthdef.ErrBadReference).Err()
			}
			inputs[j] = constants[idx]
			continue
		}
		if src < 0 || src >= i {
			return synthdef.Node{}, bad(off).Index(j).
				Context("node %d is not before node %d", src, i).
				Cause(synthdef.ErrBadReference).Err()
		}
		producer := earlier[src].UGen
		if idx >= len(producer.Outputs) {
			return synthdef.Node{}, bad(off).Index(j).
				Context("output %d of %s, which has %d", idx, producer.Op, len(producer.Outputs)).
				Cause(synthdef.ErrBadReference).Err()
		}
		inputs[j] = ugen.OutputRef{Node: producer, Index: idx}
	}

	outputs := make([]ugen.Rate, numOutputs)
	for k := range outputs {
		off := r.off
		if outputs[k], err = readRate(r, "output rate"); err != nil {
			return synthdef.Node{}, err
		}
		if !outputs[k].Valid() {
			return synthdef.Node{}, bad(off).Index(k).Cause(synthdef.ErrBadRate).Err()
		}
	}

	u := &ugen.UGen{Op: op, Rate: rate, Inputs: inputs, Outputs: outputs}
	if controls.IsControlOp(op) {
		if special+numOutputs > numParams {
			return synthdef.Node{}, bad(start).Index(special).
				Context("parameters %d..%d of %d", special, special+numOutputs, numParams).
				Cause(synthdef.ErrBadReference).Err()
		}
	} else {
		u.Special = special
	}
	return synthdef.Node{UGen: u, Special: special}, nil
}

func readRate(r *reader, what string) (ugen.Rate, error) {
	b, err := r.int8(what)
	return ugen.Rate(b), err
}

// resolveControls rebuilds the descriptor table from the control nodes.
// Names and parameter slots that no control node covers are dropped, and the
// remaining slots are packed so control specials stay consistent.
func (c *Codec) resolveControls(g *synthdef.CompiledGraph, defaults []float32, paramStart int, names []nameEntry) error {
	numParams := len(defaults)
	owned := make([]bool, numParams)
	rates := make([]ugen.Rate, numParams)
	for _, n := range g.Nodes {
		if !controls.IsControlOp(n.UGen.Op) {
			continue
		}
		for k, rate := range n.UGen.Outputs {
			p := n.Special + k
			if !owned[p] {
				owned[p] = true
				rates[p] = rate
			}
		}
	}

	labels := make([]string, numParams)
	for _, e := range names {
		inconsistent := synthdef.NewError("decode", synthdef.KindInconsistency).
			Definition(g.Name).Offset(e.offset).Index(e.index).Context("name %q", e.name)
		switch {
		case e.index >= numParams || !owned[e.index]:
			err := c.tolerate(ReasonOrphanName, inconsistent.Cause(synthdef.ErrOrphanControl),
				"dropped control name without a control node",
				logging.Definition(g.Name), logging.Control(e.name), logging.ControlIndex(e.index))
			if err != nil {
				return err
			}
		case labels[e.index] != "":
			err := c.tolerate(ReasonDuplicateControl, inconsistent.Cause(synthdef.ErrOrphanControl),
				"dropped second name for control",
				logging.Definition(g.Name), logging.Control(e.name), logging.ControlIndex(e.index))
			if err != nil {
				return err
			}
		default:
			labels[e.index] = e.name
		}
	}

	// rebase[p] is the number of kept slots before p
	rebase := make([]int, numParams+1)
	g.Controls = make([]ugen.Descriptor, 0, numParams)
	for p := 0; p < numParams; p++ {
		rebase[p] = len(g.Controls)
		if !owned[p] {
			err := c.tolerate(ReasonOrphanParameter,
				synthdef.NewError("decode", synthdef.KindInconsistency).
					Definition(g.Name).Offset(paramStart+4*p).Index(p).
					Cause(synthdef.ErrOrphanControl),
				"dropped parameter without a control node",
				logging.Definition(g.Name), logging.ControlIndex(p))
			if err != nil {
				return err
			}
			continue
		}
		g.Controls = append(g.Controls, ugen.Descriptor{
			Name:    labels[p],
			Rate:    rates[p],
			Default: defaults[p],
		})
	}
	rebase[numParams] = len(g.Controls)

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if !controls.IsControlOp(n.UGen.Op) {
			continue
		}
		n.Special = rebase[n.Special]
		descs := make([]ugen.Descriptor, len(n.UGen.Outputs))
		copy(descs, g.Controls[n.Special:])
		for k, rate := range n.UGen.Outputs {
			descs[k].Rate = rate
		}
		n.UGen.Controls = descs
	}
	return nil
}

// tolerate drops an inconsistent entry with a warning, or fails in strict mode
func (c *Codec) tolerate(reason string, strict *synthdef.ErrorBuilder, msg string, fields ...logging.Field) error {
	if c.options.Strict {
		return strict.Err()
	}
	c.logger.Warn(msg, append(fields, logging.String("reason", reason))...)
	c.options.Metrics.RecordDiagnostic(reason)
	return nil
}
