// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/fragport/lib/coordroot"
)

// Environment variables read by [Load] and [Config.ApplyEnvironment].
const (
	// EnvConfig names the configuration file when --config is absent.
	EnvConfig = "FRAGPORT_CONFIG"

	// EnvRoot is an explicit coordination root. Build systems that know
	// the shared directory set this instead of relying on discovery.
	EnvRoot = "FRAGPORT_ROOT"

	// EnvGeneration is the build generation stamped on indirect
	// records and required of them at resolve time.
	EnvGeneration = "FRAGPORT_GENERATION"

	// EnvIndirect enables the indirect channel for exports ("true",
	// "1", ...; anything strconv.ParseBool accepts).
	EnvIndirect = "FRAGPORT_INDIRECT"
)

// Config is the complete fragport configuration.
type Config struct {
	// Root controls coordination root discovery.
	Root RootConfig `yaml:"root"`

	// Export controls what "fragport export" emits.
	Export ExportConfig `yaml:"export"`

	// Logging controls the CLI logger.
	Logging LoggingConfig `yaml:"logging"`
}

// RootConfig configures coordination root discovery.
type RootConfig struct {
	// Markers are the build-graph root marker files, in priority order.
	// Default: [go.work, go.mod]
	Markers []string `yaml:"markers"`

	// Subdir is the coordination directory created next to the marker.
	// Default: .fragport
	Subdir string `yaml:"subdir"`

	// Override is an explicit coordination root; discovery is skipped
	// when set. ${VAR} and ${VAR:-default} are expanded.
	Override string `yaml:"override"`
}

// ExportConfig configures export.
type ExportConfig struct {
	// Indirect also writes every exported fragment to the shared store.
	Indirect bool `yaml:"indirect"`

	// Generation is stamped on indirect records. Empty disables
	// generation checks.
	Generation string `yaml:"generation"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// Format is one of auto, text, json. "auto" picks text on a
	// terminal and JSON otherwise. Default: auto
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Root: RootConfig{
			Markers: coordroot.DefaultMarkers(),
			Subdir:  coordroot.DefaultSubdir,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load returns the effective configuration: the file at path (or at
// $FRAGPORT_CONFIG when path is empty, or [Default] when both are
// empty), with environment overrides applied and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnvironment(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from a specific file, on top of
// [Default]. Files ending in .json or .jsonc are JSON with comments and
// trailing commas; anything else is YAML. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Standard JSON is valid YAML, so one decoder serves both
		// once comments and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// ApplyEnvironment overlays the FRAGPORT_* variables onto c. lookup is
// os.LookupEnv in production.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) error {
	if value, ok := lookup(EnvRoot); ok && value != "" {
		c.Root.Override = value
	}
	if value, ok := lookup(EnvGeneration); ok {
		c.Export.Generation = value
	}
	if value, ok := lookup(EnvIndirect); ok && value != "" {
		indirect, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvIndirect, value, err)
		}
		c.Export.Indirect = indirect
	}
	c.expandVariables()
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	c.Root.Override = expandVars(c.Root.Override)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	levels  = []string{"debug", "info", "warn", "error"}
	formats = []string{"auto", "text", "json"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Root.Markers) == 0 {
		errs = append(errs, errors.New("root.markers must name at least one marker file"))
	}
	for _, marker := range c.Root.Markers {
		if marker == "" || strings.ContainsRune(marker, filepath.Separator) || strings.Contains(marker, "/") {
			errs = append(errs, fmt.Errorf("root.markers: %q is not a plain file name", marker))
		}
	}
	if c.Root.Subdir == "" || c.Root.Subdir == "." || c.Root.Subdir == ".." ||
		strings.Contains(c.Root.Subdir, "/") || strings.ContainsRune(c.Root.Subdir, filepath.Separator) {
		errs = append(errs, fmt.Errorf("root.subdir: %q is not a plain directory name", c.Root.Subdir))
	}
	if !slices.Contains(levels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levels))
	}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}

// Locator returns the coordination root locator described by c.
func (c *Config) Locator() coordroot.Locator {
	return coordroot.Locator{
		Markers:  slices.Clone(c.Root.Markers),
		Subdir:   c.Root.Subdir,
		Override: c.Root.Override,
	}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
