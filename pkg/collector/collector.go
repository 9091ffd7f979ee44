// Package collector gathers every node, constant and control descriptor
// reachable from a set of root elements.
package collector

import (
	"github.com/dd0wney/synthgraph/pkg/controls"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// Result is the output of a collection pass. Nodes are in collection order,
// which is not yet a valid evaluation order. Specials[i] is the finalised
// special index of Nodes[i].
type Result struct {
	Nodes     []*ugen.UGen
	Specials  []int
	Constants []*ugen.Constant
	Controls  *controls.Registry
}

type frame struct {
	node *ugen.UGen
	next int
}

// Collect walks the graph depth-first from roots. Each node is visited once
// regardless of how many paths lead to it. Cycles terminate the walk but are
// not reported; the sequencer rejects them.
func Collect(roots []ugen.Element, policy synthdef.DedupPolicy) *Result {
	res := &Result{Controls: controls.NewRegistry()}
	marked := make(map[*ugen.UGen]struct{})

	var stack []frame
	visit := func(root *ugen.UGen) {
		if _, seen := marked[root]; seen {
			return
		}
		marked[root] = struct{}{}
		stack = append(stack, frame{node: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.node.Inputs) {
				in := top.node.Inputs[top.next]
				top.next++
				ref, ok := in.(ugen.OutputRef)
				if !ok {
					continue
				}
				if _, seen := marked[ref.Node]; !seen {
					marked[ref.Node] = struct{}{}
					stack = append(stack, frame{node: ref.Node})
				}
				continue
			}
			stack = stack[:len(stack)-1]
			res.add(top.node)
		}
	}

	for _, root := range roots {
		for _, n := range rootNodes(root) {
			visit(n)
		}
	}

	res.collectConstants(policy)
	return res
}

// rootNodes resolves a root element to the nodes it names. A node root is
// taken as-is so that zero-output sinks are reachable.
func rootNodes(root ugen.Element) []*ugen.UGen {
	if u, ok := root.(*ugen.UGen); ok {
		return []*ugen.UGen{u}
	}
	var nodes []*ugen.UGen
	for _, leaf := range root.Leaves() {
		switch v := leaf.(type) {
		case *ugen.UGen:
			nodes = append(nodes, v)
		case ugen.OutputRef:
			nodes = append(nodes, v.Node)
		case ugen.ControlChannel:
			nodes = append(nodes, v.Node)
		}
	}
	return nodes
}

func (r *Result) add(u *ugen.UGen) {
	special := u.Special
	if controls.IsControlOp(u.Op) {
		special = r.Controls.Append(descriptorsOf(u)...)
	}
	r.Nodes = append(r.Nodes, u)
	r.Specials = append(r.Specials, special)
}

// descriptorsOf returns one descriptor per output. Control nodes built
// without descriptors get unnamed ones at their output rates.
func descriptorsOf(u *ugen.UGen) []ugen.Descriptor {
	if len(u.Controls) == len(u.Outputs) {
		return u.Controls
	}
	descs := make([]ugen.Descriptor, len(u.Outputs))
	for i, rate := range u.Outputs {
		if i < len(u.Controls) {
			descs[i] = u.Controls[i]
		}
		descs[i].Rate = rate
	}
	return descs
}

func (r *Result) collectConstants(policy synthdef.DedupPolicy) {
	seen := make(map[any]struct{})
	for _, u := range r.Nodes {
		for _, in := range u.Inputs {
			c, ok := in.(*ugen.Constant)
			if !ok {
				continue
			}
			key := policy.Key(c)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			r.Constants = append(r.Constants, c)
		}
	}
}
