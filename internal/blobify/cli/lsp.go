package cli

import (
	"github.com/spf13/cobra"

	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. Logs go to
stderr.`,
		Example: `  # Start LSP server (usually called by an editor)
  blobify-lang lsp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd)
		},
	}
}

func runLSP(cmd *cobra.Command) error {
	cfg := GetConfig(cmd.Context())
	idx, cleanup, err := openIndex(cmd, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := config.GetLogger(cmd.Context())
	server := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, logger).
		WithIndex(idx).
		WithVersion(Version)
	return server.Run(cmd.Context())
}
