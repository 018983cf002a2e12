package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{".blobify"}, cfg.Extensions)
	assert.Equal(t, ".blobify-lang", cfg.PersistenceDir)
	assert.False(t, cfg.Persist)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, OutputText, cfg.Output)
	assert.True(t, cfg.Format.BlankLineBeforeContext)
	assert.False(t, cfg.Format.MigrateLegacyFilters)
	assert.Contains(t, cfg.ExcludedDirs, ".git")
	assert.Empty(t, cfg.FileUsed)
	assert.Equal(t, filepath.Join(cfg.Root, ".blobify-lang"), cfg.PersistencePath())
}

func TestDefault(t *testing.T) {
	t.Setenv("BLOBIFY_LANG_CONCURRENCY", "2")
	cfg := Default(".")
	assert.Equal(t, 8, cfg.Concurrency)
	assert.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.Root))
}

func TestLoad_Layering(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
extensions: [".blobify", ".bfy"]
concurrency: 4
log_level: debug
format:
  blank_line_before_context: false
`)
	t.Setenv("BLOBIFY_LANG_CONCURRENCY", "3")
	t.Setenv("BLOBIFY_LANG_FORMAT__MIGRATE_LEGACY_FILTERS", "true")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("output", "text", "")
	flags.Bool("write", false, "")
	require.NoError(t, flags.Parse([]string{"--output", "json", "--write"}))

	cfg, err := Load(dir, "", flags)
	require.NoError(t, err)

	// File
	assert.Equal(t, []string{".blobify", ".bfy"}, cfg.Extensions)
	assert.False(t, cfg.Format.BlankLineBeforeContext)
	// Env over file
	assert.Equal(t, 3, cfg.Concurrency)
	assert.True(t, cfg.Format.MigrateLegacyFilters)
	// Unset flag does not override the file
	assert.Equal(t, "debug", cfg.LogLevel)
	// Set flag wins
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Equal(t, filepath.Join(dir, FileName), cfg.FileUsed)
}

func TestLoad_EnvList(t *testing.T) {
	t.Setenv("BLOBIFY_LANG_EXCLUDED_DIRS", "a, b,,c")
	cfg, err := Load(t.TempDir(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.ExcludedDirs)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("persist: true\n"), 0o644))

	cfg, err := Load(t.TempDir(), path, nil)
	require.NoError(t, err)
	assert.True(t, cfg.Persist)
	assert.Equal(t, path, cfg.FileUsed)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty extensions", "extensions: []\n", "extensions must not be empty"},
		{"extension without dot", "extensions: [blobify]\n", "must start with '.'"},
		{"log level", "log_level: loud\n", "unknown log level"},
		{"concurrency", "concurrency: 0\n", "concurrency must be positive"},
		{"output", "output: xml\n", "unknown output"},
		{"bad yaml", "extensions: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Load(dir, "", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := Default(t.TempDir())
	assert.True(t, cfg.MatchesExtension("dir/a.blobify"))
	assert.False(t, cfg.MatchesExtension("a.txt"))
	assert.True(t, cfg.IsExcludedDir("node_modules"))
	assert.False(t, cfg.IsExcludedDir("src"))

	cfg.PersistenceDir = "/abs/state"
	assert.Equal(t, "/abs/state", cfg.PersistencePath())

	cfg.LogLevel = "WARN"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	cfg.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Default(".").SlogLevel())
}

func TestLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
	logger := NewLogger(Default(".").SlogLevel())
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
