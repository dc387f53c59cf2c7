// Package config loads uytin settings from project and user config files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/uytin/pkg/evaluator"
)

// Format identifies the encoding of a config file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// DefaultMaxCallDepth bounds recursion so runaway programs fail with a
// diagnostic instead of exhausting the goroutine stack.
const DefaultMaxCallDepth = 10000

// Config holds every user-tunable setting.
type Config struct {
	Limits Limits `toml:"limits" yaml:"limits"`
	Output Output `toml:"output" yaml:"output"`
	REPL   REPL   `toml:"repl"   yaml:"repl"`
}

// Limits maps onto evaluator.Budget. Zero disables a limit.
type Limits struct {
	MaxCallDepth int   `toml:"max_call_depth" yaml:"max_call_depth"`
	MaxSteps     int64 `toml:"max_steps"      yaml:"max_steps"`
	TimeMs       int64 `toml:"time_ms"        yaml:"time_ms"`
}

type Output struct {
	Pretty bool `toml:"pretty" yaml:"pretty"`
}

type REPL struct {
	HistoryFile string `toml:"history_file" yaml:"history_file"`
	Prompt      string `toml:"prompt"       yaml:"prompt"`
}

// Source records where a loaded config came from. Path is empty for the
// built-in defaults.
type Source struct {
	Path   string
	Format Format
}

// Defaults returns the configuration used when no file is found.
func Defaults() Config {
	return Config{
		Limits: Limits{MaxCallDepth: DefaultMaxCallDepth},
		REPL:   REPL{Prompt: "uytin> "},
	}
}

// Budget converts the limits section into an evaluator budget.
func (c Config) Budget() evaluator.Budget {
	return evaluator.Budget{
		MaxCallDepth: c.Limits.MaxCallDepth,
		MaxSteps:     c.Limits.MaxSteps,
		TimeMs:       c.Limits.TimeMs,
	}
}

// Load resolves configuration for a project directory.
// Precedence: ./.uytin.toml, ./.uytin.yaml, <homeDir>/.uytin/config.toml,
// defaults. An empty homeDir skips the user config.
//
// The first file that exists wins. Fields it leaves out keep their default
// values. A file that exists but cannot be parsed is an error; a missing
// file just moves on to the next candidate.
func Load(projectDir, homeDir string) (Config, Source, error) {
	candidates := []Source{
		{Path: filepath.Join(projectDir, ".uytin.toml"), Format: FormatTOML},
		{Path: filepath.Join(projectDir, ".uytin.yaml"), Format: FormatYAML},
	}
	if homeDir != "" {
		candidates = append(candidates, Source{
			Path:   filepath.Join(homeDir, ".uytin", "config.toml"),
			Format: FormatTOML,
		})
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, Source{}, fmt.Errorf("read config %q: %w", candidate.Path, err)
		}

		cfg, err := Decode(data, candidate.Format)
		if err != nil {
			return Config{}, Source{}, fmt.Errorf("parse config %q: %w", candidate.Path, err)
		}
		return cfg, candidate, nil
	}

	return Defaults(), Source{}, nil
}

// Decode parses config data on top of Defaults and validates the result.
// Unknown keys are rejected.
func Decode(data []byte, format Format) (Config, error) {
	cfg := Defaults()
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF and leaves the defaults.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative limits.
func (c Config) Validate() error {
	var errs []error
	if c.Limits.MaxCallDepth < 0 {
		errs = append(errs, fmt.Errorf("limits.max_call_depth must not be negative, got %d", c.Limits.MaxCallDepth))
	}
	if c.Limits.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("limits.max_steps must not be negative, got %d", c.Limits.MaxSteps))
	}
	if c.Limits.TimeMs < 0 {
		errs = append(errs, fmt.Errorf("limits.time_ms must not be negative, got %d", c.Limits.TimeMs))
	}
	return errors.Join(errs...)
}

// Marshal renders the config in the given format.
func Marshal(cfg Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(cfg)
	case FormatYAML:
		return yaml.Marshal(cfg)
	}
	return nil, fmt.Errorf("unsupported config format %q", format)
}
