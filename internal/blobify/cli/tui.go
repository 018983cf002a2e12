package cli

import (
	"github.com/spf13/cobra"

	"github.com/blobify/blobify-lang/internal/blobify/tui"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [root]",
		Short: "Browse workspace diagnostics interactively",
		Long: `Scan a workspace and browse files, diagnostics and context
inheritance in the terminal.

Keys: up/down move, tab switches between files and contexts, r reloads,
q quits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configForRoot(cmd, args)
			if err != nil {
				return err
			}
			idx, cleanup, err := openIndex(cmd, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := idx.Scan(cmd.Context(), cfg.Root); err != nil {
				return err
			}
			return tui.Run(idx)
		},
	}
}
