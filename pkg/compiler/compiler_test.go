package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/metrics"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

func freqGraph() (*ugen.UGen, *ugen.UGen, *ugen.UGen) {
	ctl := ugen.NewControl(ugen.Control, ugen.Descriptor{Name: "freq", Default: 440})
	freq, _ := ctl.Channel("freq")
	osc := ugen.New("SinOsc", ugen.Audio, 1, freq, ugen.Const(0))
	out := ugen.New("Out", ugen.Audio, 0, ugen.Const(0), osc)
	return ctl, osc, out
}

func TestCompile_TwoSources(t *testing.T) {
	a := ugen.New("A", ugen.Control, 1)
	b := ugen.New("B", ugen.Control, 1)
	c := ugen.New("C", ugen.Control, 1, a, b)

	g, err := Compile("abc", c)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	assert.Same(t, a, g.Nodes[0].UGen)
	assert.Same(t, b, g.Nodes[1].UGen)
	assert.Same(t, c, g.Nodes[2].UGen)
}

func TestCompile_FreqControl(t *testing.T) {
	ctl, osc, out := freqGraph()

	g, err := Compile("sine", out)
	require.NoError(t, err)

	assert.Equal(t, "sine", g.Name)
	require.Len(t, g.Nodes, 3)
	assert.Same(t, ctl, g.Nodes[0].UGen)
	assert.Equal(t, 0, g.Nodes[0].Special)
	assert.Same(t, osc, g.Nodes[1].UGen)
	assert.Same(t, out, g.Nodes[2].UGen)

	require.Len(t, g.Controls, 1)
	assert.Equal(t, float32(440), g.Controls[0].Default)
	d, idx, ok := g.Control("freq")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, ugen.Control, d.Rate)

	require.Len(t, g.Constants, 2)
	assert.Equal(t, float32(0), g.Constants[0].Value)
}

func TestCompile_SecondControlNodeOffset(t *testing.T) {
	first := ugen.NewControl(ugen.Control,
		ugen.Descriptor{Name: "freq", Default: 440},
		ugen.Descriptor{Name: "amp", Default: 0.2})
	second := ugen.NewControl(ugen.Audio, ugen.Descriptor{Name: "in", Default: 0})
	mul := ugen.BinaryOp(ugen.BinaryMul, ugen.Audio, second, first.Output(1))
	osc := ugen.New("SinOsc", ugen.Audio, 1, first.Output(0), mul)

	g, err := Compile("two", osc)
	require.NoError(t, err)
	require.Len(t, g.Controls, 3)

	specials := map[*ugen.UGen]int{}
	for _, n := range g.Nodes {
		specials[n.UGen] = n.Special
	}
	assert.Equal(t, 0, specials[first])
	assert.Equal(t, 2, specials[second])
	assert.Equal(t, ugen.BinaryMul, specials[mul])
	assert.Equal(t, 0, second.Special, "source node must not be mutated")
}

func TestCompile_AnonymousName(t *testing.T) {
	_, _, out := freqGraph()

	g1, err := Compile("", out)
	require.NoError(t, err)
	g2, err := Compile("", out)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(g1.Name, TempPrefix))
	assert.NotEqual(t, g1.Name, g2.Name)
}

func TestCompile_Empty(t *testing.T) {
	g, err := Compile("empty")
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Constants)
	assert.Empty(t, g.Controls)
}

func TestCompile_Cycle(t *testing.T) {
	a := ugen.New("A", ugen.Control, 1)
	b := ugen.New("B", ugen.Control, 1, a)
	a.Inputs = ugen.AsInputs(b)

	g, err := Compile("loop", b)
	require.Error(t, err)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, synthdef.ErrCycle)
	assert.True(t, synthdef.IsStructural(err))
	assert.Contains(t, err.Error(), `"loop"`)
}

func TestCompile_ValuePolicy(t *testing.T) {
	osc := ugen.New("SinOsc", ugen.Audio, 1, ugen.Const(1), ugen.Const(1))

	identity, err := New().Compile("id", osc)
	require.NoError(t, err)
	assert.Len(t, identity.Constants, 2)

	value, err := New(WithPolicy(synthdef.DedupByValue)).Compile("val", osc)
	require.NoError(t, err)
	assert.Len(t, value.Constants, 1)
	assert.Equal(t, synthdef.DedupByValue, value.Policy)
}

func TestCompile_Deterministic(t *testing.T) {
	_, _, out := freqGraph()

	first, err := Compile("det", out)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Compile("det", out)
		require.NoError(t, err)
		assert.Equal(t, first.Nodes, again.Nodes)
		assert.Equal(t, first.Constants, again.Constants)
	}
}

func TestCompile_MetricsAndLogging(t *testing.T) {
	reg := metrics.NewRegistry()
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

	c := New(WithMetrics(reg), WithLogger(logger))
	_, _, out := freqGraph()
	_, err := c.Compile("logged", out)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["synthgraph_compiles_total"])
	assert.True(t, names["synthgraph_graph_nodes"])

	assert.Contains(t, buf.String(), `"definition":"logged"`)
	assert.Contains(t, buf.String(), `"component":"compiler"`)
}
