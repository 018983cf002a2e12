package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/format"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

// FmtOptions holds options for the fmt command.
type FmtOptions struct {
	Write bool // Rewrite files in place
	Check bool // Only report files that would change
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand() *cobra.Command {
	opts := &FmtOptions{}
	cmd := &cobra.Command{
		Use:   "fmt [paths...]",
		Short: "Format .blobify files",
		Long: `Rewrite .blobify files in canonical layout.

Lines are trimmed, context headers and patterns are normalized and runs
of blank lines are collapsed. Without --write or --check the formatted
text is printed. Use "-" to format standard input.`,
		Example: `  # Print the formatted file
  blobify-lang fmt .blobify

  # Format every file in place, converting legacy filters to CSV
  blobify-lang fmt --write --migrate-filters .

  # Fail when any file is not formatted
  blobify-lang fmt --check .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runFmt(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write the result to the source file")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "List files that are not formatted and fail if any")
	cmd.Flags().Bool("migrate-filters", false, "Rewrite legacy name:regex filters to CSV form")

	return cmd
}

func formatOptions(cfg *config.Config) format.Options {
	return format.Options{
		BlankLineBeforeContext: cfg.Format.BlankLineBeforeContext,
		MigrateLegacyFilters:   cfg.Format.MigrateLegacyFilters,
	}
}

func runFmt(cmd *cobra.Command, opts *FmtOptions, paths []string) error {
	cfg := GetConfig(cmd.Context())
	fopts := formatOptions(cfg)
	out := cmd.OutOrStdout()

	if len(paths) == 1 && paths[0] == "-" {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if opts.Check {
			if format.Changed(string(text), fopts) {
				return ErrIssuesFound
			}
			return nil
		}
		_, err = io.WriteString(out, format.Format(string(text), fopts))
		return err
	}

	files, err := collectFiles(cfg, paths)
	if err != nil {
		return err
	}

	unformatted := 0
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text := string(content)
		formatted := format.Format(text, fopts)

		switch {
		case opts.Check:
			if formatted != text {
				unformatted++
				fmt.Fprintln(out, displayPath(path))
			}
		case opts.Write:
			if formatted == text {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			config.GetLogger(cmd.Context()).Debug("formatted", "path", path)
		default:
			if _, err := io.WriteString(out, formatted); err != nil {
				return err
			}
		}
	}

	if unformatted > 0 {
		return fmt.Errorf("%d files need formatting: %w", unformatted, ErrIssuesFound)
	}
	return nil
}

// collectFiles expands directories among paths into their matching files.
// Files named explicitly are kept whatever their extension.
func collectFiles(cfg *config.Config, paths []string) ([]string, error) {
	idx := workspace.NewIndex(cfg, nil, nil)
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		found, err := idx.Files(abs)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}
