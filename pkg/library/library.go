// Package library stores encoded synth definitions in a directory, one file
// per definition.
//
// Files are named after the definition: <name>.scsyndef, or
// <name>.scsyndef.sz when written with snappy compression. Reads go through
// a memory map.
package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"

	"github.com/dd0wney/synthgraph/pkg/codec"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/metrics"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
)

// File extensions
const (
	Extension           = ".scsyndef"
	CompressedExtension = ".scsyndef.sz"
)

var (
	// ErrNotFound is returned when no file holds the named definition
	ErrNotFound = errors.New("definition not found")
	// ErrInvalidName is returned for names that cannot be used as file names
	ErrInvalidName = errors.New("invalid definition name")
)

// Entry describes one stored definition
type Entry struct {
	Name       string
	Path       string
	Size       int64
	Compressed bool
	ModTime    time.Time
}

// Options configures a Library
type Options struct {
	Compress bool
	Codec    *codec.Codec
	Logger   logging.Logger
	Metrics  *metrics.Registry
}

// Option mutates Options
type Option func(*Options)

// WithCompression writes new definitions snappy-compressed
func WithCompression(on bool) Option {
	return func(o *Options) {
		o.Compress = on
	}
}

// WithCodec sets the codec used to encode and decode definitions
func WithCodec(c *codec.Codec) Option {
	return func(o *Options) {
		o.Codec = c
	}
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(o *Options) {
		o.Metrics = r
	}
}

// Library is a directory of definition files. It is safe for concurrent use
// within one process.
type Library struct {
	mu   sync.RWMutex
	dir  string
	opts Options
	log  logging.Logger
}

// Open creates dir if needed and returns a library rooted there
func Open(dir string, opts ...Option) (*Library, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Codec == nil {
		o.Codec = codec.New(codec.WithLogger(logging.OrNop(o.Logger)), codec.WithMetrics(o.Metrics))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	l := &Library{
		dir:  dir,
		opts: o,
		log:  logging.OrNop(o.Logger).With(logging.Component("library"), logging.Path(dir)),
	}

	entries, err := l.List()
	if err != nil {
		return nil, err
	}
	o.Metrics.SetLibraryDefinitions(len(entries))
	return l, nil
}

// Dir returns the library directory
func (l *Library) Dir() string {
	return l.dir
}

// ValidateName checks that name can be used as a file name
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > synthdef.MaxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, synthdef.MaxNameLength)
	case name == "." || name == ".." || strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00") || name != filepath.Base(name):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Save encodes g and writes it under its name, replacing any stored
// definition of that name. It returns the path written.
func (l *Library) Save(g *synthdef.CompiledGraph) (path string, err error) {
	start := time.Now()
	defer func() { l.opts.Metrics.RecordLibraryOperation("save", err, time.Since(start)) }()

	if err := ValidateName(g.Name); err != nil {
		return "", err
	}

	data, err := l.opts.Codec.Encode(g)
	if err != nil {
		return "", err
	}

	ext, stale := Extension, CompressedExtension
	if l.opts.Compress {
		data = snappy.Encode(nil, data)
		ext, stale = CompressedExtension, Extension
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path = filepath.Join(l.dir, g.Name+ext)
	if err := writeAtomic(l.dir, path, data); err != nil {
		return "", err
	}
	if err := os.Remove(filepath.Join(l.dir, g.Name+stale)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove stale definition: %w", err)
	}

	l.log.Info("definition saved",
		logging.Definition(g.Name),
		logging.Bytes(len(data)),
		logging.Bool("compressed", l.opts.Compress))
	l.refreshCount()
	return path, nil
}

// Load reads and decodes the named definition
func (l *Library) Load(name string) (g *synthdef.CompiledGraph, err error) {
	start := time.Now()
	defer func() { l.opts.Metrics.RecordLibraryOperation("load", err, time.Since(start)) }()

	data, path, err := l.read(name)
	if err != nil {
		return nil, err
	}

	defs, err := l.opts.Codec.Decode(data)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		if d.Name == name {
			return d, nil
		}
	}
	if len(defs) == 1 {
		return defs[0], nil
	}
	return nil, fmt.Errorf("%w: %s does not contain %q", ErrNotFound, path, name)
}

// ReadRaw returns the stored bytes of the named definition, decompressed but
// not decoded
func (l *Library) ReadRaw(name string) (data []byte, err error) {
	start := time.Now()
	defer func() { l.opts.Metrics.RecordLibraryOperation("read", err, time.Since(start)) }()

	data, _, err = l.read(name)
	return data, err
}

func (l *Library) read(name string) ([]byte, string, error) {
	if err := ValidateName(name); err != nil {
		return nil, "", err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	path, compressed, err := l.locate(name)
	if err != nil {
		return nil, "", err
	}

	data, err := readMapped(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if compressed {
		if data, err = snappy.Decode(nil, data); err != nil {
			return nil, "", fmt.Errorf("failed to decompress %s: %w", path, err)
		}
	}
	return data, path, nil
}

// List returns every stored definition sorted by name
func (l *Library) List() (entries []Entry, err error) {
	start := time.Now()
	defer func() { l.opts.Metrics.RecordLibraryOperation("list", err, time.Since(start)) }()

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.list()
}

func (l *Library) list() ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read library directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name, compressed, ok := parseFileName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:       name,
			Path:       filepath.Join(l.dir, de.Name()),
			Size:       info.Size(),
			Compressed: compressed,
			ModTime:    info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Delete removes the named definition
func (l *Library) Delete(name string) (err error) {
	start := time.Now()
	defer func() { l.opts.Metrics.RecordLibraryOperation("delete", err, time.Since(start)) }()

	if err := ValidateName(name); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path, _, err := l.locate(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}

	l.log.Info("definition deleted", logging.Definition(name))
	l.refreshCount()
	return nil
}

// locate finds the file holding name. Callers hold l.mu.
func (l *Library) locate(name string) (string, bool, error) {
	for _, c := range []struct {
		ext        string
		compressed bool
	}{{Extension, false}, {CompressedExtension, true}} {
		path := filepath.Join(l.dir, name+c.ext)
		if _, err := os.Stat(path); err == nil {
			return path, c.compressed, nil
		}
	}
	return "", false, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (l *Library) refreshCount() {
	if l.opts.Metrics == nil {
		return
	}
	if entries, err := l.list(); err == nil {
		l.opts.Metrics.SetLibraryDefinitions(len(entries))
	}
}

func parseFileName(file string) (name string, compressed bool, ok bool) {
	switch {
	case strings.HasSuffix(file, CompressedExtension):
		name = strings.TrimSuffix(file, CompressedExtension)
		compressed = true
	case strings.HasSuffix(file, Extension):
		name = strings.TrimSuffix(file, Extension)
	default:
		return "", false, false
	}
	return name, compressed, ValidateName(name) == nil
}

func readMapped(path string) ([]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, r.Len())
	if _, err := r.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".synthdef-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write definition: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close definition: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move definition into place: %w", err)
	}
	return nil
}
