// Package config loads blobify-lang settings from defaults, a YAML file,
// environment variables and command-line flags, in increasing priority.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// FileName is the config file looked up in the workspace root.
	FileName = "blobify-lang.yaml"
	// EnvPrefix prefixes environment overrides. A double underscore
	// descends into a section: BLOBIFY_LANG_FORMAT__MIGRATE_LEGACY_FILTERS.
	EnvPrefix = "BLOBIFY_LANG_"
)

// Output modes.
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTable = "table"
)

var (
	outputModes = []string{OutputText, OutputJSON, OutputYAML, OutputTable}
	logLevels   = []string{"debug", "info", "warn", "error"}
	listKeys    = []string{"extensions", "excluded_dirs"}
)

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are command-local and never reach the config.
var flagKeys = map[string]string{
	"log-level":       "log_level",
	"output":          "output",
	"concurrency":     "concurrency",
	"persist":         "persist",
	"migrate-filters": "format.migrate_legacy_filters",
}

// FormatConfig holds formatter settings.
type FormatConfig struct {
	BlankLineBeforeContext bool `koanf:"blank_line_before_context"`
	MigrateLegacyFilters   bool `koanf:"migrate_legacy_filters"`
}

// Config holds all blobify-lang settings.
type Config struct {
	Extensions     []string     `koanf:"extensions"`
	ExcludedDirs   []string     `koanf:"excluded_dirs"`
	PersistenceDir string       `koanf:"persistence_dir"`
	Persist        bool         `koanf:"persist"`
	LogLevel       string       `koanf:"log_level"`
	Concurrency    int          `koanf:"concurrency"`
	Output         string       `koanf:"output"`
	Format         FormatConfig `koanf:"format"`

	// Root is the workspace root; relative paths resolve against it.
	Root string `koanf:"-"`
	// FileUsed is the config file that was loaded, if any.
	FileUsed string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"extensions":                       []string{".blobify"},
		"excluded_dirs":                    []string{".git", "node_modules", "vendor", "dist", "build", ".blobify-lang"},
		"persistence_dir":                  ".blobify-lang",
		"persist":                          false,
		"log_level":                        "info",
		"concurrency":                      8,
		"output":                           OutputText,
		"format.blank_line_before_context": true,
		"format.migrate_legacy_filters":    false,
	}
}

// Default returns the built-in configuration for root, ignoring any config
// file and environment.
func Default(root string) *Config {
	k := koanf.New(".")
	var cfg Config
	// The defaults map always loads and decodes.
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	_ = k.Unmarshal("", &cfg)
	cfg.Root, _ = filepath.Abs(root)
	return &cfg
}

// Load builds the configuration for root. cfgFile overrides the default
// lookup of blobify-lang.yaml in root; flags, when non-nil, contribute only
// the flags that were explicitly set.
func Load(root, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		candidate := filepath.Join(absRoot, FileName)
		if _, err := os.Stat(candidate); err == nil {
			cfgFile = candidate
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if slices.Contains(listKeys, key) {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Root = absRoot
	cfg.FileUsed = cfgFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("invalid config: extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid config: extension %q must start with '.'", ext)
		}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid config: unknown log level %q (want one of %s)",
			c.LogLevel, strings.Join(logLevels, ", "))
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("invalid config: concurrency must be positive, got %d", c.Concurrency)
	}
	if !slices.Contains(outputModes, c.Output) {
		return fmt.Errorf("invalid config: unknown output %q (want one of %s)",
			c.Output, strings.Join(outputModes, ", "))
	}
	return nil
}

// MatchesExtension reports whether path has one of the configured
// extensions.
func (c *Config) MatchesExtension(path string) bool {
	return slices.Contains(c.Extensions, filepath.Ext(path))
}

// IsExcludedDir reports whether a directory with this base name is skipped.
func (c *Config) IsExcludedDir(name string) bool {
	return slices.Contains(c.ExcludedDirs, name)
}

// PersistencePath returns the persistence directory resolved against Root.
func (c *Config) PersistencePath() string {
	if filepath.IsAbs(c.PersistenceDir) {
		return c.PersistenceDir
	}
	return filepath.Join(c.Root, c.PersistenceDir)
}

// SlogLevel converts LogLevel for slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type loggerKey struct{}

// NewLogger returns a text logger on stderr. Stdout is left to protocol
// traffic.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from ctx, or a discarding one.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
