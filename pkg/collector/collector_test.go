package collector

import (
	"testing"

	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

func indexOf(nodes []*ugen.UGen, u *ugen.UGen) int {
	for i, n := range nodes {
		if n == u {
			return i
		}
	}
	return -1
}

func TestCollect_Empty(t *testing.T) {
	res := Collect(nil, synthdef.DedupByIdentity)
	if len(res.Nodes) != 0 || len(res.Constants) != 0 || res.Controls.Len() != 0 {
		t.Errorf("Expected empty result, got %d nodes %d constants %d controls",
			len(res.Nodes), len(res.Constants), res.Controls.Len())
	}
}

func TestCollect_VisitsSharedNodeOnce(t *testing.T) {
	osc := ugen.New("SinOsc", ugen.Audio, 1, ugen.Const(440), ugen.Const(0))
	left := ugen.BinaryOp(ugen.BinaryMul, ugen.Audio, osc, ugen.Const(0.5))
	right := ugen.BinaryOp(ugen.BinaryMul, ugen.Audio, osc, ugen.Const(0.25))
	out := ugen.New("Out", ugen.Audio, 0, ugen.Const(0), left, right)

	res := Collect([]ugen.Element{out}, synthdef.DedupByIdentity)

	if len(res.Nodes) != 4 {
		t.Fatalf("Expected 4 nodes, got %d", len(res.Nodes))
	}
	for _, u := range []*ugen.UGen{osc, left, right, out} {
		if indexOf(res.Nodes, u) < 0 {
			t.Errorf("%s missing from result", u.Op)
		}
	}
	if indexOf(res.Nodes, osc) > indexOf(res.Nodes, left) {
		t.Error("Post-order walk should append osc before its consumer")
	}
	if indexOf(res.Nodes, out) != 3 {
		t.Error("Root should be appended last")
	}
}

func TestCollect_ZeroOutputRoot(t *testing.T) {
	out := ugen.New("Out", ugen.Audio, 0, ugen.Const(0))
	res := Collect([]ugen.Element{out}, synthdef.DedupByIdentity)
	if len(res.Nodes) != 1 || res.Nodes[0] != out {
		t.Errorf("Zero-output root should be collected, got %v", res.Nodes)
	}
}

func TestCollect_RootVariants(t *testing.T) {
	pan := ugen.New("Pan2", ugen.Audio, 2, ugen.Const(0))
	ctl := ugen.NewControl(ugen.Control, ugen.Descriptor{Name: "amp", Default: 0.1})

	res := Collect([]ugen.Element{pan.Output(1), ctl.Channels()[0], ugen.Const(3)}, synthdef.DedupByIdentity)

	if len(res.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(res.Nodes))
	}
	if len(res.Constants) != 1 {
		t.Errorf("A bare constant root is not an input; expected 1 constant, got %d", len(res.Constants))
	}
}

func TestCollect_ControlSpecials(t *testing.T) {
	first := ugen.NewControl(ugen.Control,
		ugen.Descriptor{Name: "freq", Default: 440},
		ugen.Descriptor{Name: "amp", Default: 0.1})
	second := ugen.NewTrigControl(ugen.Descriptor{Name: "gate", Default: 1})
	mix := ugen.BinaryOp(ugen.BinaryAdd, ugen.Control, first.Output(0), second)
	mul := ugen.BinaryOp(ugen.BinaryMul, ugen.Control, mix, first.Output(1))

	res := Collect([]ugen.Element{mul}, synthdef.DedupByIdentity)

	if res.Controls.Len() != 3 {
		t.Fatalf("Expected 3 descriptors, got %d", res.Controls.Len())
	}
	i := indexOf(res.Nodes, first)
	j := indexOf(res.Nodes, second)
	if res.Specials[i] != 0 {
		t.Errorf("First control special = %d, want 0", res.Specials[i])
	}
	if res.Specials[j] != 2 {
		t.Errorf("Second control special = %d, want 2", res.Specials[j])
	}
	if res.Controls.At(2).Name != "gate" {
		t.Errorf("Descriptor 2 = %q, want gate", res.Controls.At(2).Name)
	}
	if first.Special != 0 || second.Special != 0 {
		t.Error("Collect must not mutate the nodes")
	}
	k := indexOf(res.Nodes, mix)
	if res.Specials[k] != ugen.BinaryAdd {
		t.Errorf("Non-control special = %d, want selector", res.Specials[k])
	}
}

func TestCollect_ControlWithoutDescriptors(t *testing.T) {
	ctl := ugen.New(ugen.OpControl, ugen.Control, 2)
	res := Collect([]ugen.Element{ctl}, synthdef.DedupByIdentity)
	if res.Controls.Len() != 2 {
		t.Fatalf("Expected 2 positional descriptors, got %d", res.Controls.Len())
	}
	if res.Controls.At(1).Named() || res.Controls.At(1).Rate != ugen.Control {
		t.Errorf("Unexpected descriptor %+v", res.Controls.At(1))
	}
}

func TestCollect_ConstantPolicies(t *testing.T) {
	shared := ugen.Const(1)
	a := ugen.New("A", ugen.Control, 1, shared, ugen.Const(2))
	b := ugen.New("B", ugen.Control, 1, a, shared, ugen.Const(2))

	tests := []struct {
		name     string
		policy   synthdef.DedupPolicy
		expected []float32
	}{
		{"identity", synthdef.DedupByIdentity, []float32{1, 2, 2}},
		{"value", synthdef.DedupByValue, []float32{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Collect([]ugen.Element{b}, tt.policy)
			if len(res.Constants) != len(tt.expected) {
				t.Fatalf("Expected %d constants, got %d", len(tt.expected), len(res.Constants))
			}
			for i, v := range tt.expected {
				if res.Constants[i].Value != v {
					t.Errorf("Constant %d = %g, want %g", i, res.Constants[i].Value, v)
				}
			}
		})
	}
}

func TestCollect_CycleTerminates(t *testing.T) {
	a := ugen.New("A", ugen.Control, 1)
	b := ugen.New("B", ugen.Control, 1, a)
	a.Inputs = ugen.AsInputs(b)

	res := Collect([]ugen.Element{b}, synthdef.DedupByIdentity)
	if len(res.Nodes) != 2 {
		t.Errorf("Expected 2 nodes from cyclic graph, got %d", len(res.Nodes))
	}
}

func TestCollect_DeepChain(t *testing.T) {
	node := ugen.New("Src", ugen.Audio, 1)
	for i := 0; i < 100000; i++ {
		node = ugen.UnaryOp(ugen.UnaryNeg, ugen.Audio, node)
	}
	res := Collect([]ugen.Element{node}, synthdef.DedupByIdentity)
	if len(res.Nodes) != 100001 {
		t.Errorf("Expected 100001 nodes, got %d", len(res.Nodes))
	}
	if res.Nodes[0].Op != "Src" {
		t.Errorf("Deepest antecedent should come first, got %s", res.Nodes[0].Op)
	}
}
