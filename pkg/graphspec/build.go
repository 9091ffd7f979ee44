package graphspec

import (
	"fmt"

	"github.com/dd0wney/synthgraph/pkg/ugen"
	"github.com/dd0wney/synthgraph/pkg/validation"
)

// Graph is a built description: the roots to compile plus lookup tables
type Graph struct {
	Name     string
	Roots    []ugen.Element
	Nodes    map[string]*ugen.UGen
	Channels map[string]ugen.ControlChannel
}

// Build validates the document and creates its nodes. References may point
// forward. A description whose references form a loop builds fine and is
// rejected by the compiler as a cycle.
func (d *Document) Build() (*Graph, error) {
	if err := validation.Struct(d); err != nil {
		return nil, fmt.Errorf("graph %q: %w", d.Name, err)
	}

	g := &Graph{
		Name:     d.Name,
		Nodes:    make(map[string]*ugen.UGen, len(d.Nodes)),
		Channels: make(map[string]ugen.ControlChannel),
	}

	for _, grp := range d.Controls {
		if err := g.addControls(grp); err != nil {
			return nil, err
		}
	}

	for _, n := range d.Nodes {
		if _, dup := g.Nodes[n.ID]; dup {
			return nil, fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
		}
		rate, err := ugen.ParseRate(n.Rate)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		g.Nodes[n.ID] = ugen.NewSpecial(n.Op, rate, n.NumOutputs(), n.Special)
	}

	// Wire inputs once every node exists
	for _, n := range d.Nodes {
		elems := make([]ugen.Element, 0, len(n.Inputs))
		for j, in := range n.Inputs {
			el, err := g.resolve(in)
			if err != nil {
				return nil, fmt.Errorf("node %q input %d: %w", n.ID, j, err)
			}
			elems = append(elems, el)
		}
		g.Nodes[n.ID].Inputs = ugen.AsInputs(elems...)
	}

	for i, r := range d.Roots {
		p, err := r.Parse()
		if err != nil {
			return nil, fmt.Errorf("root %d: %w", i, err)
		}
		if p.Kind == InputConstant {
			return nil, fmt.Errorf("root %d: %w: a constant cannot be a root", i, ErrBadInput)
		}
		el, err := g.resolve(r)
		if err != nil {
			return nil, fmt.Errorf("root %d: %w", i, err)
		}
		g.Roots = append(g.Roots, el)
	}

	return g, nil
}

func (g *Graph) addControls(grp ControlGroup) error {
	rate := ugen.Control
	if grp.Rate != "" {
		var err error
		if rate, err = ugen.ParseRate(grp.Rate); err != nil {
			return err
		}
	}

	descs := make([]ugen.Descriptor, len(grp.Params))
	for i, p := range grp.Params {
		descs[i] = ugen.Descriptor{Name: p.Name, Default: p.Default, Lag: p.Lag}
	}

	var u *ugen.UGen
	switch grp.Op {
	case "":
		u = ugen.NewControl(rate, descs...)
	case ugen.OpTrigControl:
		u = ugen.NewTrigControl(descs...)
	default:
		u = ugen.NewControlOp(grp.Op, rate, descs...)
	}

	for _, ch := range u.Channels() {
		if _, dup := g.Channels[ch.Name()]; dup {
			return fmt.Errorf("control %q: %w", ch.Name(), ErrDuplicateControl)
		}
		g.Channels[ch.Name()] = ch
	}
	return nil
}

func (g *Graph) resolve(in Input) (ugen.Element, error) {
	p, err := in.Parse()
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case InputConstant:
		return ugen.Const(p.Value), nil
	case InputControl:
		ch, ok := g.Channels[p.ID]
		if !ok {
			return nil, fmt.Errorf("%w: control %q", ErrUnknownReference, p.ID)
		}
		return ch, nil
	default:
		u, ok := g.Nodes[p.ID]
		if !ok {
			return nil, fmt.Errorf("%w: node %q", ErrUnknownReference, p.ID)
		}
		if p.Index < 0 {
			return u, nil
		}
		if p.Index >= u.NumOutputs() {
			return nil, fmt.Errorf("%w: node %q has %d outputs, not %d", ErrUnknownReference, p.ID, u.NumOutputs(), p.Index+1)
		}
		return u.Output(p.Index), nil
	}
}
