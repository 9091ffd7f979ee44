// Package config loads the synthdef tool configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/validation"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SYNTHGRAPH_"

// Defaults
const (
	DefaultConstantDedup = "identity"
	DefaultLibraryDir    = "synthdefs"
	DefaultLogLevel      = "info"
	DefaultDebounce      = 200 * time.Millisecond
	DefaultSendTimeout   = 5 * time.Second
)

// Config is the complete tool configuration
type Config struct {
	Compiler  CompilerConfig  `yaml:"compiler"`
	Codec     CodecConfig     `yaml:"codec"`
	Library   LibraryConfig   `yaml:"library"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watch     WatchConfig     `yaml:"watch"`
	Transport TransportConfig `yaml:"transport"`
}

// CompilerConfig configures graph compilation
type CompilerConfig struct {
	// ConstantDedup is "identity" or "value"
	ConstantDedup string `yaml:"constant_dedup"`
}

// CodecConfig configures the binary codec
type CodecConfig struct {
	// Strict turns tolerated control-table inconsistencies into errors
	Strict bool `yaml:"strict"`
}

// LibraryConfig configures the definition directory
type LibraryConfig struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// WatchConfig configures the watch command
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// TransportConfig configures delivery to an engine
type TransportConfig struct {
	// Addr is an nng URL such as tcp://127.0.0.1:57110
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Compiler: CompilerConfig{ConstantDedup: DefaultConstantDedup},
		Library:  LibraryConfig{Dir: DefaultLibraryDir},
		Logging:  LoggingConfig{Level: DefaultLogLevel},
		Watch:    WatchConfig{Debounce: DefaultDebounce},
		Transport: TransportConfig{
			Timeout: DefaultSendTimeout,
		},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// defaults, then validates the result. A missing file is an error only when
// path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := validation.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("CONSTANT_DEDUP", &c.Compiler.ConstantDedup)
	boolean("STRICT", &c.Codec.Strict)
	str("LIBRARY_DIR", &c.Library.Dir)
	boolean("LIBRARY_COMPRESS", &c.Library.Compress)
	str("LOG_LEVEL", &c.Logging.Level)
	duration("WATCH_DEBOUNCE", &c.Watch.Debounce)
	str("TRANSPORT_ADDR", &c.Transport.Addr)
	duration("TRANSPORT_TIMEOUT", &c.Transport.Timeout)

	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	c.Compiler.ConstantDedup = validation.DefaultOr(strings.ToLower(c.Compiler.ConstantDedup), DefaultConstantDedup)
	c.Library.Dir = validation.DefaultOr(c.Library.Dir, DefaultLibraryDir)
	c.Logging.Level = validation.DefaultOr(strings.ToLower(c.Logging.Level), DefaultLogLevel)
	c.Watch.Debounce = validation.DefaultOrDuration(c.Watch.Debounce, DefaultDebounce)
	c.Transport.Timeout = validation.DefaultOrDuration(c.Transport.Timeout, DefaultSendTimeout)
}

// Validate implements validation.Validatable
func (c *Config) Validate() error {
	return validation.NewConfigValidator("config").
		OneOf("compiler.constant_dedup", c.Compiler.ConstantDedup, []string{"identity", "value"}).
		Required("library.dir", c.Library.Dir).
		OneOf("logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}).
		MinDuration("watch.debounce", c.Watch.Debounce, 10*time.Millisecond).
		MaxDuration("watch.debounce", c.Watch.Debounce, 10*time.Second).
		MinDuration("transport.timeout", c.Transport.Timeout, time.Millisecond).
		When(c.Transport.Addr != "", func(v *validation.ConfigValidator) {
			v.Custom("transport.addr", func() error {
				scheme, _, ok := strings.Cut(c.Transport.Addr, "://")
				if !ok {
					return fmt.Errorf("address %q has no scheme", c.Transport.Addr)
				}
				switch scheme {
				case "tcp", "ipc", "inproc":
					return nil
				}
				return fmt.Errorf("address %q: unsupported scheme %q", c.Transport.Addr, scheme)
			})
		}).
		Validate()
}

// Policy returns the configured constant deduplication policy
func (c *Config) Policy() synthdef.DedupPolicy {
	p, err := synthdef.ParseDedupPolicy(c.Compiler.ConstantDedup)
	if err != nil {
		return synthdef.DedupByIdentity
	}
	return p
}

// LogLevel returns the configured logging level
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}
