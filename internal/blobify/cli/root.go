// Package cli provides the blobify-lang command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/store"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

// Version is set at build time.
var Version = "0.1.0"

// ErrIssuesFound is returned by commands that found problems they were
// asked to report, so the process exits non-zero.
var ErrIssuesFound = errors.New("issues found")

type configKey struct{}

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blobify-lang",
		Short: "Validate and format .blobify files",
		Long: `blobify-lang checks .blobify configuration files for syntax errors,
broken context inheritance and invalid filters.

It runs as a one-shot checker and formatter, as a language server for
editors, or as an MCP server for agents.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}

			cfg, err := loadConfig(cmd, ".")
			if err != nil {
				return err
			}

			logger := config.NewLogger(cfg.SlogLevel())
			if cfg.FileUsed != "" {
				logger.Debug("using config file", "path", cfg.FileUsed)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./"+config.FileName+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (text|json|yaml|table)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Files analyzed in parallel")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputText, config.OutputJSON, config.OutputYAML, config.OutputTable}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewFmtCommand())
	rootCmd.AddCommand(NewContextsCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewLSPCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewTUICommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig loads the configuration rooted at root, honoring --config and
// any explicitly set flags of cmd.
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(root, cfgFile, cmd.Flags())
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return config.Default(".")
}

// configForRoot returns the context config, reloaded when a command names a
// workspace root other than the working directory.
func configForRoot(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := GetConfig(cmd.Context())
	if len(args) == 0 {
		return cfg, nil
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		return nil, err
	}
	if root == cfg.Root {
		return cfg, nil
	}
	return loadConfig(cmd, root)
}

// openIndex creates a workspace index, backed by the SQLite store when
// persistence is enabled. The returned cleanup closes the store.
func openIndex(cmd *cobra.Command, cfg *config.Config) (*workspace.Index, func(), error) {
	logger := config.GetLogger(cmd.Context())
	if !cfg.Persist {
		return workspace.NewIndex(cfg, nil, logger), func() {}, nil
	}

	st, err := store.NewStore(cfg.PersistencePath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}
	return workspace.NewIndex(cfg, st, logger), cleanup, nil
}

// displayPath shortens path relative to the working directory when it lies
// below it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
