package ugen

import (
	"fmt"
	"strings"
)

// Operator names with built-in meaning
const (
	OpControl      = "Control"
	OpAudioControl = "AudioControl"
	OpTrigControl  = "TrigControl"
	OpLagControl   = "LagControl"
	OpUnary        = "UnaryOpUGen"
	OpBinary       = "BinaryOpUGen"
)

// Selectors stored in the special index of UnaryOpUGen nodes
const (
	UnaryNeg  = 0
	UnaryAbs  = 5
	UnarySqrt = 14
)

// Selectors stored in the special index of BinaryOpUGen nodes
const (
	BinaryAdd = 0
	BinarySub = 1
	BinaryMul = 2
	BinaryDiv = 4
	BinaryMin = 12
	BinaryMax = 13
)

// UGen is a unit-generator node: a named operation with a rate, typed inputs
// and one rate per output.
//
// Special is operator specific. Arithmetic operators use it as the operator
// selector; control operators receive their offset into the descriptor table
// when the graph is compiled, and the compiler records that offset beside the
// node instead of writing it back here.
type UGen struct {
	Op       string
	Rate     Rate
	Inputs   []Input
	Outputs  []Rate
	Special  int
	Controls []Descriptor
}

// New creates a node with numOutputs outputs, all at the node's rate
func New(op string, rate Rate, numOutputs int, inputs ...Element) *UGen {
	return NewSpecial(op, rate, numOutputs, 0, inputs...)
}

// NewSpecial is New with an explicit special index
func NewSpecial(op string, rate Rate, numOutputs, special int, inputs ...Element) *UGen {
	outputs := make([]Rate, numOutputs)
	for i := range outputs {
		outputs[i] = rate
	}
	return &UGen{
		Op:      op,
		Rate:    rate,
		Inputs:  AsInputs(inputs...),
		Outputs: outputs,
		Special: special,
	}
}

// UnaryOp creates a UnaryOpUGen applying selector to in
func UnaryOp(selector int, rate Rate, in Element) *UGen {
	return NewSpecial(OpUnary, rate, 1, selector, in)
}

// BinaryOp creates a BinaryOpUGen applying selector to a and b
func BinaryOp(selector int, rate Rate, a, b Element) *UGen {
	return NewSpecial(OpBinary, rate, 1, selector, a, b)
}

// NewControl creates a control node with one output per descriptor. The
// operator is chosen from the rate: audio-rate parameters use AudioControl,
// everything else uses Control.
func NewControl(rate Rate, descs ...Descriptor) *UGen {
	op := OpControl
	if rate == Audio {
		op = OpAudioControl
	}
	return NewControlOp(op, rate, descs...)
}

// NewTrigControl creates a TrigControl node
func NewTrigControl(descs ...Descriptor) *UGen {
	return NewControlOp(OpTrigControl, Control, descs...)
}

// NewControlOp creates a control node with an explicit operator name.
// Each descriptor's rate is set to rate.
func NewControlOp(op string, rate Rate, descs ...Descriptor) *UGen {
	controls := make([]Descriptor, len(descs))
	outputs := make([]Rate, len(descs))
	for i, d := range descs {
		d.Rate = rate
		controls[i] = d
		outputs[i] = rate
	}
	return &UGen{
		Op:       op,
		Rate:     rate,
		Outputs:  outputs,
		Controls: controls,
	}
}

func (*UGen) element() {}

// NumOutputs returns the number of outputs
func (u *UGen) NumOutputs() int {
	return len(u.Outputs)
}

// Output returns a reference to output i
func (u *UGen) Output(i int) Element {
	if i < 0 || i >= len(u.Outputs) {
		panic(fmt.Sprintf("ugen: output index %d out of range [0,%d) on %s", i, len(u.Outputs), u.Op))
	}
	if u.Controls != nil {
		return ControlChannel{Node: u, Index: i}
	}
	return OutputRef{Node: u, Index: i}
}

// Leaves decomposes the node: a single-output node is its own leaf, a
// multi-output node yields one OutputRef per output.
func (u *UGen) Leaves() []Element {
	if len(u.Outputs) == 1 {
		return []Element{u}
	}
	leaves := make([]Element, len(u.Outputs))
	for i := range u.Outputs {
		leaves[i] = OutputRef{Node: u, Index: i}
	}
	return leaves
}

// Channel returns the handle for the named control parameter
func (u *UGen) Channel(name string) (ControlChannel, bool) {
	for i, d := range u.Controls {
		if d.Named() && d.Name == name {
			return ControlChannel{Node: u, Index: i}, true
		}
	}
	return ControlChannel{}, false
}

// Channels returns one handle per control parameter, in output order
func (u *UGen) Channels() []ControlChannel {
	channels := make([]ControlChannel, len(u.Controls))
	for i := range u.Controls {
		channels[i] = ControlChannel{Node: u, Index: i}
	}
	return channels
}

// Antecedents returns the distinct nodes feeding this node's inputs, in
// first-use order
func (u *UGen) Antecedents() []*UGen {
	var out []*UGen
	seen := make(map[*UGen]struct{})
	for _, in := range u.Inputs {
		ref, ok := in.(OutputRef)
		if !ok {
			continue
		}
		if _, dup := seen[ref.Node]; dup {
			continue
		}
		seen[ref.Node] = struct{}{}
		out = append(out, ref.Node)
	}
	return out
}

func (u *UGen) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s.%s(", u.Op, u.Rate)
	for i, in := range u.Inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, in)
	}
	sb.WriteString(")")
	return sb.String()
}
