package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/export"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	pathColor    = color.New(color.Bold)
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [paths...]",
		Short: "Validate .blobify files",
		Long: `Validate .blobify files and directories.

Directories are searched recursively for files with the configured
extensions. Every finding is printed as path:line: severity: message.
The command fails when any error is found; warnings and hints do not
affect the exit status.`,
		Example: `  # Check every .blobify file below the working directory
  blobify-lang check

  # Check one file and print JSON
  blobify-lang check .blobify -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runCheck(cmd, args)
		},
	}
}

func runCheck(cmd *cobra.Command, paths []string) error {
	cfg := GetConfig(cmd.Context())
	idx := workspace.NewIndex(cfg, nil, config.GetLogger(cmd.Context()))

	if err := analyzePaths(cmd, idx, paths); err != nil {
		return err
	}

	entries := idx.Entries()
	out := cmd.OutOrStdout()
	var err error
	switch cfg.Output {
	case config.OutputJSON:
		err = export.ExportJSON(entries, out)
	case config.OutputYAML:
		err = yaml.NewEncoder(out).Encode(export.NewReport(entries))
	case config.OutputTable:
		renderCheckTable(out, entries)
	default:
		renderCheckText(out, entries)
	}
	if err != nil {
		return err
	}

	if idx.Totals().Errors > 0 {
		return ErrIssuesFound
	}
	return nil
}

// analyzePaths adds every file named by paths, or found below the
// directories among them, to idx. Nothing is pruned: a file named on the
// command line is checked even when a directory argument would skip it.
func analyzePaths(cmd *cobra.Command, idx *workspace.Index, paths []string) error {
	seen := make(map[string]bool)
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		found, err := idx.Files(abs)
		if err != nil {
			return err
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(idx.Config().Concurrency)
	for _, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := idx.UpdateFile(f)
			return err
		})
	}
	return g.Wait()
}

func renderCheckText(w io.Writer, entries []*workspace.Entry) {
	var totals analysis.Counts
	for _, e := range entries {
		totals = totals.Add(e.Counts())
		for _, d := range e.Diagnostics {
			fmt.Fprintf(w, "%s:%d: %s: %s\n",
				pathColor.Sprint(displayPath(e.Path)), d.Line+1, severityLabel(d.Severity), d.Message)
		}
	}
	fmt.Fprintf(w, "%d files checked: %d errors, %d warnings, %d infos\n",
		len(entries), totals.Errors, totals.Warnings, totals.Informations)
}

func renderCheckTable(w io.Writer, entries []*workspace.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"File", "Line", "Severity", "Code", "Message"})
	for _, e := range entries {
		for _, d := range e.Diagnostics {
			t.AppendRow(table.Row{displayPath(e.Path), d.Line + 1, strings.ToLower(string(d.Severity)), d.Code, d.Message})
		}
	}
	t.Render()
}

func severityLabel(s domain.Severity) string {
	label := strings.ToLower(string(s))
	switch s {
	case domain.SeverityError:
		return errorColor.Sprint(label)
	case domain.SeverityWarning:
		return warningColor.Sprint(label)
	}
	return infoColor.Sprint(label)
}

// writeJSON encodes v indented.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
