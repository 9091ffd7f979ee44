package graphspec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/synthgraph/pkg/codec"
	"github.com/dd0wney/synthgraph/pkg/compiler"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

const sineYAML = `
name: sine
controls:
  - rate: control
    params:
      - name: freq
        default: 440
nodes:
  - id: out
    op: Out
    rate: audio
    outputs: 0
    inputs: [0, osc]
  - id: osc
    op: SinOsc
    rate: audio
    inputs: ["@freq", 0]
roots: [out]
`

const sineHCL = `
name = "sine"

control {
  rate = "control"
  param "freq" {
    default = 440
  }
}

node "out" {
  op      = "Out"
  rate    = "audio"
  outputs = 0
  inputs  = [0, "osc"]
}

node "osc" {
  op     = "SinOsc"
  rate   = "audio"
  inputs = ["@freq", 0]
}

roots = ["out"]
`

func compileDoc(t *testing.T, doc *Document) *synthdef.CompiledGraph {
	t.Helper()
	g, err := doc.Build()
	require.NoError(t, err)
	compiled, err := compiler.Compile(g.Name, g.Roots...)
	require.NoError(t, err)
	return compiled
}

func handBuiltSine() *ugen.UGen {
	ctl := ugen.NewControl(ugen.Control, ugen.Descriptor{Name: "freq", Default: 440})
	freq, _ := ctl.Channel("freq")
	osc := ugen.New("SinOsc", ugen.Audio, 1, freq, ugen.Const(0))
	return ugen.New("Out", ugen.Audio, 0, ugen.Const(0), osc)
}

func TestParseYAML_Sine(t *testing.T) {
	doc, err := ParseYAML([]byte(sineYAML))
	require.NoError(t, err)

	assert.Equal(t, "sine", doc.Name)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, 0, doc.Nodes[0].NumOutputs())
	assert.Equal(t, 1, doc.Nodes[1].NumOutputs())
	assert.Equal(t, []Input{"@freq", "0"}, doc.Nodes[1].Inputs)

	g := compileDoc(t, doc)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, ugen.OpControl, g.Nodes[0].UGen.Op)
	assert.Equal(t, "SinOsc", g.Nodes[1].UGen.Op)
	assert.Equal(t, "Out", g.Nodes[2].UGen.Op)
}

func TestParseHCL_MatchesYAML(t *testing.T) {
	fromYAML, err := ParseYAML([]byte(sineYAML))
	require.NoError(t, err)
	fromHCL, err := ParseHCL([]byte(sineHCL), "sine.hcl")
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromHCL)

	a, err := codec.Encode(compileDoc(t, fromYAML))
	require.NoError(t, err)
	b, err := codec.Encode(compileDoc(t, fromHCL))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_MatchesHandBuiltGraph(t *testing.T) {
	doc, err := ParseYAML([]byte(sineYAML))
	require.NoError(t, err)

	want, err := compiler.Compile("sine", handBuiltSine())
	require.NoError(t, err)
	wantBytes, err := codec.Encode(want)
	require.NoError(t, err)

	gotBytes, err := codec.Encode(compileDoc(t, doc))
	require.NoError(t, err)
	assert.Equal(t, wantBytes, gotBytes)
}

func TestParseYAML_UnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("name: x\nroots: [a]\nextra: 1\n"))
	assert.Error(t, err)
}

func TestParseYAML_NonScalarInput(t *testing.T) {
	_, err := ParseYAML([]byte("name: x\nroots: [a]\nnodes:\n  - id: a\n    op: A\n    rate: audio\n    inputs: [[1, 2]]\n"))
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `node "a" {`},
		{"missing roots", `node "a" { op = "A" rate = "audio" }`},
		{"object inputs", "node \"a\" {\n op = \"A\"\n rate = \"audio\"\n inputs = { x = 1 }\n}\nroots = [\"a\"]\n"},
		{"bool input", "node \"a\" {\n op = \"A\"\n rate = \"audio\"\n inputs = [true]\n}\nroots = [\"a\"]\n"},
		{"fractional outputs", "node \"a\" {\n op = \"A\"\n rate = \"audio\"\n outputs = 1.5\n}\nroots = [\"a\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHCL([]byte(tt.src), "bad.hcl")
			assert.Error(t, err)
		})
	}
}

func TestInput_Parse(t *testing.T) {
	tests := []struct {
		in      Input
		want    Parsed
		wantErr bool
	}{
		{in: "0", want: Parsed{Kind: InputConstant, Value: 0, Index: -1}},
		{in: "-0.5", want: Parsed{Kind: InputConstant, Value: -0.5, Index: -1}},
		{in: "1e3", want: Parsed{Kind: InputConstant, Value: 1000, Index: -1}},
		{in: "osc", want: Parsed{Kind: InputNode, ID: "osc", Index: -1}},
		{in: "pan:1", want: Parsed{Kind: InputNode, ID: "pan", Index: 1}},
		{in: " @freq ", want: Parsed{Kind: InputControl, ID: "freq", Index: -1}},
		{in: "", wantErr: true},
		{in: "@", wantErr: true},
		{in: "pan:x", wantErr: true},
		{in: "pan:-1", wantErr: true},
		{in: ":1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := tt.in.Parse()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func outputs(n int) *int { return &n }

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr error
	}{
		{
			name: "unknown node",
			doc: Document{
				Name:  "x",
				Nodes: []NodeSpec{{ID: "a", Op: "A", Rate: "audio", Inputs: []Input{"b"}}},
				Roots: []Input{"a"},
			},
			wantErr: ErrUnknownReference,
		},
		{
			name: "unknown control",
			doc: Document{
				Name:  "x",
				Nodes: []NodeSpec{{ID: "a", Op: "A", Rate: "audio", Inputs: []Input{"@amp"}}},
				Roots: []Input{"a"},
			},
			wantErr: ErrUnknownReference,
		},
		{
			name: "output out of range",
			doc: Document{
				Name: "x",
				Nodes: []NodeSpec{
					{ID: "pan", Op: "Pan2", Rate: "audio", Outputs: outputs(2)},
					{ID: "a", Op: "A", Rate: "audio", Inputs: []Input{"pan:2"}},
				},
				Roots: []Input{"a"},
			},
			wantErr: ErrUnknownReference,
		},
		{
			name: "duplicate id",
			doc: Document{
				Name: "x",
				Nodes: []NodeSpec{
					{ID: "a", Op: "A", Rate: "audio"},
					{ID: "a", Op: "B", Rate: "audio"},
				},
				Roots: []Input{"a"},
			},
			wantErr: ErrDuplicateID,
		},
		{
			name: "duplicate control",
			doc: Document{
				Name: "x",
				Controls: []ControlGroup{
					{Params: []Param{{Name: "freq"}}},
					{Rate: "audio", Params: []Param{{Name: "freq"}}},
				},
				Nodes: []NodeSpec{{ID: "a", Op: "A", Rate: "audio"}},
				Roots: []Input{"a"},
			},
			wantErr: ErrDuplicateControl,
		},
		{
			name: "constant root",
			doc: Document{
				Name:  "x",
				Roots: []Input{"1"},
			},
			wantErr: ErrBadInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   Document
		field string
	}{
		{"no roots", Document{Name: "x"}, "roots"},
		{"bad rate", Document{Name: "x", Nodes: []NodeSpec{{ID: "a", Op: "A", Rate: "fast"}}, Roots: []Input{"a"}}, "rate"},
		{"bad id", Document{Name: "x", Nodes: []NodeSpec{{ID: "a:b", Op: "A", Rate: "audio"}}, Roots: []Input{"a"}}, "id"},
		{"bad control op", Document{Name: "x", Controls: []ControlGroup{{Op: "Knob", Params: []Param{{Name: "p"}}}}, Roots: []Input{"@p"}}, "op"},
		{"empty control group", Document{Name: "x", Controls: []ControlGroup{{}}, Roots: []Input{"@p"}}, "params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestBuild_ForwardReferencesAndPorts(t *testing.T) {
	doc := Document{
		Name: "stereo",
		Nodes: []NodeSpec{
			{ID: "out", Op: "Out", Rate: "audio", Outputs: outputs(0), Inputs: []Input{"0", "pan"}},
			{ID: "pan", Op: "Pan2", Rate: "audio", Outputs: outputs(2), Inputs: []Input{"noise", "0"}},
			{ID: "noise", Op: "WhiteNoise", Rate: "audio"},
			{ID: "left", Op: "Amplitude", Rate: "control", Inputs: []Input{"pan:0"}},
		},
		Roots: []Input{"out", "left"},
	}

	g, err := doc.Build()
	require.NoError(t, err)
	require.Len(t, g.Roots, 2)

	// "pan" expands to both outputs
	assert.Len(t, g.Nodes["out"].Inputs, 3)
	assert.Len(t, g.Nodes["left"].Inputs, 1)

	compiled, err := compiler.Compile(g.Name, g.Roots...)
	require.NoError(t, err)
	require.Len(t, compiled.Nodes, 4)
	assert.NoError(t, compiled.Validate())
}

func TestBuild_ControlOps(t *testing.T) {
	doc := Document{
		Name: "ctl",
		Controls: []ControlGroup{
			{Params: []Param{{Name: "freq", Default: 440}, {Name: "amp", Default: 0.1}}},
			{Rate: "audio", Params: []Param{{Name: "in"}}},
			{Op: "TrigControl", Params: []Param{{Name: "gate", Default: 1}}},
			{Op: "LagControl", Params: []Param{{Name: "cutoff", Default: 1000, Lag: 0.2}}},
		},
		Nodes: []NodeSpec{
			{ID: "sum", Op: "Sum4", Rate: "audio", Inputs: []Input{"@freq", "@amp", "@in", "@gate", "@cutoff"}},
		},
		Roots: []Input{"sum"},
	}

	g, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, ugen.OpControl, g.Channels["freq"].Node.Op)
	assert.Equal(t, ugen.OpAudioControl, g.Channels["in"].Node.Op)
	assert.Equal(t, ugen.OpTrigControl, g.Channels["gate"].Node.Op)
	assert.Equal(t, ugen.OpLagControl, g.Channels["cutoff"].Node.Op)
	assert.Equal(t, 1, g.Channels["amp"].Index)

	compiled, err := compiler.Compile(g.Name, g.Roots...)
	require.NoError(t, err)
	require.Len(t, compiled.Controls, 5)
	_, idx, ok := compiled.Control("cutoff")
	require.True(t, ok)
	assert.Equal(t, 4, idx)
}

func TestBuild_CycleRejectedByCompiler(t *testing.T) {
	doc := Document{
		Name: "loop",
		Nodes: []NodeSpec{
			{ID: "a", Op: "A", Rate: "audio", Inputs: []Input{"b"}},
			{ID: "b", Op: "B", Rate: "audio", Inputs: []Input{"a"}},
			{ID: "out", Op: "Out", Rate: "audio", Outputs: outputs(0), Inputs: []Input{"a"}},
		},
		Roots: []Input{"out"},
	}

	g, err := doc.Build()
	require.NoError(t, err)

	_, err = compiler.Compile(g.Name, g.Roots...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, synthdef.ErrCycle))
	assert.True(t, synthdef.IsStructural(err))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "sine.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sineYAML), 0o644))
	doc, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "sine", doc.Name)

	// Name falls back to the file's base name
	hclPath := filepath.Join(dir, "beep.hcl")
	require.NoError(t, os.WriteFile(hclPath, []byte("node \"a\" {\n op = \"A\"\n rate = \"audio\"\n}\nroots = [\"a\"]\n"), 0o644))
	doc, err = Load(hclPath)
	require.NoError(t, err)
	assert.Equal(t, "beep", doc.Name)

	txtPath := filepath.Join(dir, "sine.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte(sineYAML), 0o644))
	_, err = Load(txtPath)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestIsDescription(t *testing.T) {
	assert.True(t, IsDescription("a/b/sine.yaml"))
	assert.True(t, IsDescription("sine.YML"))
	assert.True(t, IsDescription("sine.hcl"))
	assert.False(t, IsDescription("sine.scsyndef"))
	assert.False(t, IsDescription("sine"))
}

func TestExampleDescriptionsCompile(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*"))
	require.NoError(t, err)

	compiled := 0
	for _, path := range paths {
		if !IsDescription(path) {
			continue
		}
		t.Run(filepath.Base(path), func(t *testing.T) {
			doc, err := Load(path)
			require.NoError(t, err)
			g := compileDoc(t, doc)
			assert.NoError(t, g.Validate())

			data, err := codec.Encode(g)
			require.NoError(t, err)
			decoded, err := codec.Decode(data)
			require.NoError(t, err)
			require.Len(t, decoded, 1)
			assert.Equal(t, doc.Name, decoded[0].Name)
		})
		compiled++
	}
	assert.Positive(t, compiled)
}
