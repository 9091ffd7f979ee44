package synthdef

import (
	"fmt"
	"math"

	"github.com/dd0wney/synthgraph/pkg/controls"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// MaxNameLength is the longest definition, operator or control name the
// binary format can hold
const MaxNameLength = 255

// DedupPolicy decides when two constants share a slot in the constant table.
// The choice changes the table, and therefore the encoded bytes.
type DedupPolicy int

const (
	// DedupByIdentity merges only references to the same *ugen.Constant
	DedupByIdentity DedupPolicy = iota
	// DedupByValue merges constants with bit-identical values
	DedupByValue
)

func (p DedupPolicy) String() string {
	switch p {
	case DedupByIdentity:
		return "identity"
	case DedupByValue:
		return "value"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseDedupPolicy converts "identity" or "value" to a policy
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch s {
	case "identity", "":
		return DedupByIdentity, nil
	case "value":
		return DedupByValue, nil
	default:
		return DedupByIdentity, fmt.Errorf("unknown constant dedup policy %q", s)
	}
}

// Key returns the map key identifying c under the policy. Value keys use the
// raw bits so that -0 and +0 (and distinct NaN payloads) stay apart.
func (p DedupPolicy) Key(c *ugen.Constant) any {
	if p == DedupByValue {
		return math.Float32bits(c.Value)
	}
	return c
}

// Node is one entry of the compiled node table: the source node plus its
// finalised special index. For control operators Special is the offset of the
// node's descriptors in Controls; for everything else it is UGen.Special.
type Node struct {
	UGen    *ugen.UGen
	Special int
}

// CompiledGraph is a topologically ordered synth definition ready for encoding
type CompiledGraph struct {
	Name      string
	Nodes     []Node
	Constants []*ugen.Constant
	Controls  []ugen.Descriptor
	Policy    DedupPolicy
}

// NodeIndex maps every node to its position in the node table
func (g *CompiledGraph) NodeIndex() map[*ugen.UGen]int {
	idx := make(map[*ugen.UGen]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.UGen] = i
	}
	return idx
}

// ConstantIndex maps every constant key (see DedupPolicy.Key) to its slot
func (g *CompiledGraph) ConstantIndex() map[any]int {
	idx := make(map[any]int, len(g.Constants))
	for i, c := range g.Constants {
		key := g.Policy.Key(c)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Registry rebuilds a controls registry from the descriptor table
func (g *CompiledGraph) Registry() *controls.Registry {
	r := controls.NewRegistry()
	r.Append(g.Controls...)
	return r
}

// Validate checks the ordering contract the encoder and the engine rely on:
// every input names a constant in the table or an output of an earlier node,
// every rate is one the format can carry, and every control node's
// descriptors lie inside the control table.
func (g *CompiledGraph) Validate() error {
	nodeIdx := g.NodeIndex()
	constIdx := g.ConstantIndex()

	for i, n := range g.Nodes {
		u := n.UGen
		if !u.Rate.Valid() {
			return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(int(u.Rate)).
				Context("node rate").Cause(ErrBadRate).Err()
		}
		for k, r := range u.Outputs {
			if !r.Valid() {
				return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(k).
					Context("output rate %d", r).Cause(ErrBadRate).Err()
			}
		}
		for j, in := range u.Inputs {
			switch v := in.(type) {
			case ugen.OutputRef:
				pos, ok := nodeIdx[v.Node]
				if !ok {
					return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(j).
						Context("input refers to %s outside the node table", v.Node.Op).
						Cause(ErrDanglingRef).Err()
				}
				if pos >= i {
					return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(j).
						Context("input refers to node %d", pos).
						Cause(ErrOrderViolation).Err()
				}
				if v.Index < 0 || v.Index >= len(v.Node.Outputs) {
					return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(j).
						Context("output %d of %s does not exist", v.Index, v.Node.Op).
						Cause(ErrDanglingRef).Err()
				}
			case *ugen.Constant:
				if _, ok := constIdx[g.Policy.Key(v)]; !ok {
					return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(j).
						Context("constant %g is not in the constant table", v.Value).
						Cause(ErrDanglingRef).Err()
				}
			}
		}
		if controls.IsControlOp(u.Op) {
			if n.Special < 0 || n.Special+len(u.Outputs) > len(g.Controls) {
				return Structural("validate").Definition(g.Name).Node(i, u.Op).Index(n.Special).
					Context("descriptor range exceeds %d controls", len(g.Controls)).
					Cause(ErrDanglingRef).Err()
			}
		}
	}
	return nil
}

// Control returns the named descriptor and its index
func (g *CompiledGraph) Control(name string) (ugen.Descriptor, int, bool) {
	for i, d := range g.Controls {
		if d.Named() && d.Name == name {
			return d, i, true
		}
	}
	return ugen.Descriptor{}, -1, false
}
