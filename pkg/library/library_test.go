package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/synthgraph/pkg/codec"
	"github.com/dd0wney/synthgraph/pkg/compiler"
	"github.com/dd0wney/synthgraph/pkg/metrics"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

func sine(t *testing.T, name string) *synthdef.CompiledGraph {
	t.Helper()
	ctl := ugen.NewControl(ugen.Control, ugen.Descriptor{Name: "freq", Default: 440})
	freq, _ := ctl.Channel("freq")
	osc := ugen.New("SinOsc", ugen.Audio, 1, freq, ugen.Const(0))
	out := ugen.New("Out", ugen.Audio, 0, ugen.Const(0), osc)

	g, err := compiler.Compile(name, out)
	require.NoError(t, err)
	return g
}

func encoded(t *testing.T, g *synthdef.CompiledGraph) []byte {
	t.Helper()
	b, err := codec.Encode(g)
	require.NoError(t, err)
	return b
}

func TestLibrary_SaveLoad(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "snappy"}[compress], func(t *testing.T) {
			lib, err := Open(t.TempDir(), WithCompression(compress))
			require.NoError(t, err)

			g := sine(t, "sine")
			path, err := lib.Save(g)
			require.NoError(t, err)

			if compress {
				assert.True(t, strings.HasSuffix(path, CompressedExtension))
			} else {
				assert.True(t, strings.HasSuffix(path, Extension))
				onDisk, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, encoded(t, g), onDisk)
			}

			loaded, err := lib.Load("sine")
			require.NoError(t, err)
			assert.Equal(t, "sine", loaded.Name)
			assert.Equal(t, encoded(t, g), encoded(t, loaded))
		})
	}
}

func TestLibrary_ReadRaw(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "snappy"}[compress], func(t *testing.T) {
			dir := t.TempDir()
			lib, err := Open(dir, WithCompression(compress))
			require.NoError(t, err)

			_, err = lib.Save(sine(t, "sine"))
			require.NoError(t, err)

			raw, err := lib.ReadRaw("sine")
			require.NoError(t, err)
			assert.Equal(t, encoded(t, sine(t, "sine")), raw)
		})
	}

	// Stored bytes are returned as written, even when decoding would change them
	dir := t.TempDir()
	lib, err := Open(dir)
	require.NoError(t, err)
	junk := []byte("SCgf-not-really")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk"+Extension), junk, 0o644))

	raw, err := lib.ReadRaw("junk")
	require.NoError(t, err)
	assert.Equal(t, junk, raw)

	_, err = lib.ReadRaw("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLibrary_SaveReplacesOtherFormat(t *testing.T) {
	dir := t.TempDir()

	plain, err := Open(dir)
	require.NoError(t, err)
	_, err = plain.Save(sine(t, "sine"))
	require.NoError(t, err)

	packed, err := Open(dir, WithCompression(true))
	require.NoError(t, err)
	_, err = packed.Save(sine(t, "sine"))
	require.NoError(t, err)

	entries, err := packed.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Compressed)

	_, err = os.Stat(filepath.Join(dir, "sine"+Extension))
	assert.True(t, os.IsNotExist(err))
}

func TestLibrary_ListAndDelete(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir)
	require.NoError(t, err)

	for _, name := range []string{"pad", "bass", "lead"} {
		_, err := lib.Save(sine(t, name))
		require.NoError(t, err)
	}
	// Foreign files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"+Extension), 0o755))

	entries, err := lib.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "bass", entries[0].Name)
	assert.Equal(t, "lead", entries[1].Name)
	assert.Equal(t, "pad", entries[2].Name)
	assert.Positive(t, entries[0].Size)

	require.NoError(t, lib.Delete("lead"))
	_, err = lib.Load("lead")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, lib.Delete("lead"), ErrNotFound)

	entries, err = lib.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLibrary_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir)
	require.NoError(t, err)

	_, err = lib.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk"+Extension), []byte("not a synthdef"), 0o644))
	_, err = lib.Load("junk")
	require.Error(t, err)
	assert.True(t, synthdef.IsFormat(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+CompressedExtension), []byte{0xff, 0xff, 0xff}, 0o644))
	_, err = lib.Load("bad")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"+Extension), nil, 0o644))
	_, err = lib.Load("empty")
	assert.Error(t, err)
}

func TestLibrary_LoadFindsNamedDefinitionInBundle(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir)
	require.NoError(t, err)

	data, err := codec.EncodeAll(sine(t, "first"), sine(t, "second"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "second"+Extension), data, 0o644))

	g, err := lib.Load("second")
	require.NoError(t, err)
	assert.Equal(t, "second", g.Name)
}

func TestValidateName(t *testing.T) {
	valid := []string{"sine", "temp__0f8e", "pad-2.wide"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", ".", "..", ".hidden", "a/b", `a\b`, "a\x00b", strings.Repeat("x", 256)}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidName, "%q", name)
	}

	lib, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = lib.Save(sine(t, "../escape"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestLibrary_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	lib, err := Open(t.TempDir(), WithMetrics(reg))
	require.NoError(t, err)

	_, err = lib.Save(sine(t, "a"))
	require.NoError(t, err)
	_, err = lib.Save(sine(t, "b"))
	require.NoError(t, err)
	_, err = lib.Load("nope")
	require.Error(t, err)

	assert.Equal(t, float64(2), metricValue(t, reg.LibraryDefinitions))
	assert.Equal(t, float64(2), metricValue(t, reg.LibraryOperationsTotal.WithLabelValues("save", metrics.StatusSuccess)))
	assert.Equal(t, float64(1), metricValue(t, reg.LibraryOperationsTotal.WithLabelValues("load", metrics.StatusError)))
}
