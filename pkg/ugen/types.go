package ugen

import "fmt"

// Element is anything that can appear as a node of the graph or as a node's input.
// The set of implementations is closed: *UGen, OutputRef, *Constant and ControlChannel.
type Element interface {
	// NumOutputs returns the number of output ports the element exposes
	NumOutputs() int
	// Output returns output i as a first-class element. It panics when i is
	// out of range, like indexing a slice.
	Output(i int) Element
	// Leaves decomposes the element into the single-output elements it represents
	Leaves() []Element

	element()
}

// Input is a single node input: an OutputRef or a *Constant
type Input interface {
	Element
	input()
}

// OutputRef references one output port of a node. It does not own the node.
// Two refs are equal when they name the same node pointer and the same port.
type OutputRef struct {
	Node  *UGen
	Index int
}

func (OutputRef) element() {}
func (OutputRef) input()   {}

// NumOutputs always returns 1
func (r OutputRef) NumOutputs() int { return 1 }

// Output returns the ref itself for i == 0
func (r OutputRef) Output(i int) Element {
	mustSingle(i)
	return r
}

// Leaves returns the ref itself
func (r OutputRef) Leaves() []Element { return []Element{r} }

// Rate returns the rate of the referenced output
func (r OutputRef) Rate() Rate {
	return r.Node.Outputs[r.Index]
}

func (r OutputRef) String() string {
	return fmt.Sprintf("%s[%d]", r.Node.Op, r.Index)
}

// Constant is an immutable 32-bit literal used as a node input.
// Its identity is the pointer: two Constants holding the same value are
// distinct unless a value-based dedup policy merges them.
type Constant struct {
	Value float32
}

// Const allocates a new Constant
func Const(v float32) *Constant {
	return &Constant{Value: v}
}

func (*Constant) element() {}
func (*Constant) input()   {}

// NumOutputs always returns 1
func (c *Constant) NumOutputs() int { return 1 }

// Output returns the constant itself for i == 0
func (c *Constant) Output(i int) Element {
	mustSingle(i)
	return c
}

// Leaves returns the constant itself
func (c *Constant) Leaves() []Element { return []Element{c} }

func (c *Constant) String() string {
	return fmt.Sprintf("%g", c.Value)
}

// Descriptor describes one named or positional control parameter.
// An empty Name marks an unnamed (positional-only) parameter.
type Descriptor struct {
	Name    string
	Rate    Rate
	Default float32
	// Lag is carried for completeness and is always zero today
	Lag float32
}

// Named reports whether the descriptor can be addressed by name
func (d Descriptor) Named() bool {
	return d.Name != ""
}

// ControlChannel is the public single-output handle for one control parameter
type ControlChannel struct {
	Node  *UGen
	Index int
}

func (ControlChannel) element() {}

// NumOutputs always returns 1
func (c ControlChannel) NumOutputs() int { return 1 }

// Output returns the channel itself for i == 0
func (c ControlChannel) Output(i int) Element {
	mustSingle(i)
	return c
}

// Leaves returns the channel itself
func (c ControlChannel) Leaves() []Element { return []Element{c} }

// Ref returns the output port carrying the parameter's value
func (c ControlChannel) Ref() OutputRef {
	return OutputRef{Node: c.Node, Index: c.Index}
}

// Descriptor returns the parameter's descriptor
func (c ControlChannel) Descriptor() Descriptor {
	return c.Node.Controls[c.Index]
}

// Name returns the parameter name, empty when unnamed
func (c ControlChannel) Name() string {
	return c.Descriptor().Name
}

func mustSingle(i int) {
	if i != 0 {
		panic(fmt.Sprintf("ugen: output index %d out of range [0,1)", i))
	}
}

// AsInputs flattens elements into node inputs. Every leaf becomes exactly one
// input; a zero-output node contributes nothing.
func AsInputs(elems ...Element) []Input {
	inputs := make([]Input, 0, len(elems))
	for _, el := range elems {
		for _, leaf := range el.Leaves() {
			switch v := leaf.(type) {
			case *UGen:
				inputs = append(inputs, OutputRef{Node: v, Index: 0})
			case OutputRef:
				inputs = append(inputs, v)
			case *Constant:
				inputs = append(inputs, v)
			case ControlChannel:
				inputs = append(inputs, v.Ref())
			}
		}
	}
	return inputs
}
