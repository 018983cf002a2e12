package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/graph"
)

// ContextInfo describes one declared context and how it resolves.
type ContextInfo struct {
	Name             string   `json:"name" yaml:"name"`
	Line             int      `json:"line" yaml:"line"`
	Parents          []string `json:"parents" yaml:"parents"`
	EffectiveParents []string `json:"effective_parents" yaml:"effective_parents"`
	Ancestors        []string `json:"ancestors" yaml:"ancestors"`
}

// NewContextsCommand creates the contexts command.
func NewContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "contexts <file>",
		Short: "List the contexts of a .blobify file",
		Long: `List every context declared in a .blobify file with the parents it
declares, the parents it resolves to and its full inheritance chain.

Text output is rendered as a table.`,
		Example: `  blobify-lang contexts .blobify
  blobify-lang contexts .blobify -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContexts(cmd, args[0])
		},
	}
}

func runContexts(cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res := analysis.Analyze(string(content))
	infos := contextInfos(res.Graph)

	out := cmd.OutOrStdout()
	switch GetConfig(cmd.Context()).Output {
	case config.OutputJSON:
		return writeJSON(out, infos)
	case config.OutputYAML:
		return yaml.NewEncoder(out).Encode(infos)
	default:
		renderContextsTable(out, infos)
		return nil
	}
}

func contextInfos(g *graph.Graph) []ContextInfo {
	contexts := g.Contexts()
	infos := make([]ContextInfo, 0, len(contexts))
	for _, c := range contexts {
		parents := c.Parents
		if parents == nil {
			parents = []string{}
		}
		infos = append(infos, ContextInfo{
			Name:             c.Name,
			Line:             c.Line + 1,
			Parents:          parents,
			EffectiveParents: g.EffectiveParents(c.Name),
			Ancestors:        g.Ancestors(c.Name),
		})
	}
	return infos
}

func renderContextsTable(w io.Writer, infos []ContextInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No contexts declared.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Context", "Line", "Parents", "Inherits From"})
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.Name,
			info.Line,
			strings.Join(info.Parents, ", "),
			strings.Join(info.Ancestors, " -> "),
		})
	}
	t.Render()
}
