package cli

import (
	"context"
	"errors"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/mcp"
	"github.com/blobify/blobify-lang/internal/blobify/watcher"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Start the MCP server",
		Long: `Scan a workspace and serve its diagnostics to agents over the Model
Context Protocol on stdin/stdout.

With --watch the workspace is re-validated as files change. With
--persist the results are kept in a SQLite database under the
persistence directory and reloaded on the next start.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-validate files as they change")
	cmd.Flags().Bool("persist", false, "Persist results to the workspace database")

	return cmd
}

func runServe(cmd *cobra.Command, args []string, watch bool) error {
	cfg, err := configForRoot(cmd, args)
	if err != nil {
		return err
	}
	logger := config.GetLogger(cmd.Context())

	idx, cleanup, err := openIndex(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	n, err := idx.Scan(ctx, cfg.Root)
	if err != nil {
		return err
	}
	logger.Info("starting MCP server", "root", cfg.Root, "files", n)

	if watch {
		w, err := watcher.New(cfg.Root, idx, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	server := mcp.NewServer(&mcp.BlobifyServer{
		Index:   idx,
		Config:  cfg,
		RootDir: cfg.Root,
		Logger:  logger,
	}, Version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
