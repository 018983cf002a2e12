package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/export"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Format string // json or excalidraw
	Out    string // Output file; stdout for JSON when empty
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export <file-or-dir>",
		Short: "Export diagnostics or the context graph",
		Long: `Export analysis results for other tools.

  json        diagnostics report of a file or a whole directory
  excalidraw  context inheritance diagram of a single file`,
		Example: `  blobify-lang export . --format json --out report.json
  blobify-lang export .blobify --format excalidraw --out contexts.excalidraw`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			return runExport(cmd, opts, target)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "json", "Export format (json|excalidraw)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Output file path")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "excalidraw"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions, target string) error {
	switch opts.Format {
	case "json":
		idx, cleanup, err := openIndex(cmd, GetConfig(cmd.Context()))
		if err != nil {
			return err
		}
		defer cleanup()
		if err := analyzePaths(cmd, idx, []string{target}); err != nil {
			return err
		}
		if opts.Out == "" {
			return export.ExportJSON(idx.Entries(), cmd.OutOrStdout())
		}
		f, err := os.Create(opts.Out)
		if err != nil {
			return err
		}
		if err := export.ExportJSON(idx.Entries(), f); err != nil {
			f.Close()
			return err
		}
		return f.Close()

	case "excalidraw":
		info, err := os.Stat(target)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("excalidraw export needs a single file, %s is a directory", target)
		}
		content, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		out := opts.Out
		if out == "" {
			out = filepath.Base(target) + ".excalidraw"
		}
		if err := export.ExportExcalidraw(analysis.Analyze(string(content)).Graph, out); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out)
		return nil
	}
	return fmt.Errorf("unknown export format %q (want json or excalidraw)", opts.Format)
}
