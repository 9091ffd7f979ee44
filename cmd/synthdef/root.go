package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/spf13/cobra"

	"github.com/dd0wney/synthgraph/pkg/codec"
	"github.com/dd0wney/synthgraph/pkg/compiler"
	"github.com/dd0wney/synthgraph/pkg/config"
	"github.com/dd0wney/synthgraph/pkg/graphspec"
	"github.com/dd0wney/synthgraph/pkg/library"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/metrics"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
)

// app carries what every command needs once flags and config are resolved
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	out     io.Writer
	errOut  io.Writer
}

func (a *app) compiler() *compiler.Compiler {
	return compiler.New(
		compiler.WithPolicy(a.cfg.Policy()),
		compiler.WithLogger(a.logger),
		compiler.WithMetrics(a.metrics),
	)
}

func (a *app) codec() *codec.Codec {
	return codec.New(
		codec.WithStrict(a.cfg.Codec.Strict),
		codec.WithLogger(a.logger),
		codec.WithMetrics(a.metrics),
	)
}

func (a *app) library() (*library.Library, error) {
	return library.Open(a.cfg.Library.Dir,
		library.WithCompression(a.cfg.Library.Compress),
		library.WithCodec(a.codec()),
		library.WithLogger(a.logger),
		library.WithMetrics(a.metrics),
	)
}

// compileFile loads, builds and compiles one description
func (a *app) compileFile(path string) (*synthdef.CompiledGraph, error) {
	doc, err := graphspec.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a.compiler().Compile(g.Name, g.Roots...)
}

// readDefinitions resolves arg as a file path, falling back to a library
// name. It returns the decoded definitions and the uncompressed bytes.
func (a *app) readDefinitions(arg string) ([]*synthdef.CompiledGraph, []byte, error) {
	if _, err := os.Stat(arg); err == nil {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, nil, err
		}
		if strings.HasSuffix(arg, library.CompressedExtension) {
			if data, err = snappy.Decode(nil, data); err != nil {
				return nil, nil, fmt.Errorf("failed to decompress %s: %w", arg, err)
			}
		}
		defs, err := a.codec().Decode(data)
		if err != nil {
			return nil, nil, err
		}
		return defs, data, nil
	}

	lib, err := a.library()
	if err != nil {
		return nil, nil, err
	}
	data, err := lib.ReadRaw(arg)
	if err != nil {
		return nil, nil, err
	}
	defs, err := a.codec().Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return defs, data, nil
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	var (
		configPath string
		strict     bool
		logLevel   string
		libraryDir string
	)

	root := &cobra.Command{
		Use:           "synthdef",
		Short:         "Compile unit-generator graphs into binary synth definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("strict") {
				cfg.Codec.Strict = strict
			}
			if flags.Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if flags.Changed("library") {
				cfg.Library.Dir = libraryDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = logging.NewJSONLogger(errOut, cfg.LogLevel())
			a.metrics = metrics.NewRegistry()
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	pf.BoolVar(&strict, "strict", false, "Fail on control-table inconsistencies instead of dropping them")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&libraryDir, "library", config.DefaultLibraryDir, "Definition library directory")

	root.AddCommand(
		newCompileCmd(a),
		newDumpCmd(a),
		newVerifyCmd(a),
		newWatchCmd(a),
		newStatsCmd(a),
		newSendCmd(a),
		newLibCmd(a),
		newBrowseCmd(a),
	)
	return root
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
