// Package mcp exposes .blobify validation to agents over the Model Context
// Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/format"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

// Resource URIs.
const (
	StatusURI      = "mcp://blobify/status"
	DiagnosticsURI = "mcp://blobify/diagnostics"
	ContextsURI    = "mcp://blobify/contexts"
)

// BlobifyServer holds the state behind the MCP tools and resources.
type BlobifyServer struct {
	Index   *workspace.Index // Latest analysis of every workspace file.
	Config  *config.Config   // Server configuration.
	RootDir string           // The workspace root.
	Logger  *slog.Logger
}

// NewServer registers the blobify tools and resources on a new MCP server.
func NewServer(bs *BlobifyServer, version string) *mcp.Server {
	if bs.Logger == nil {
		bs.Logger = slog.New(slog.DiscardHandler)
	}

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "blobify-lang",
		Version: version,
	}, &mcp.ServerOptions{})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "validate_document",
		Description: "Validate .blobify text and return its diagnostics and contexts",
	}, bs.validateDocument)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "validate_file",
		Description: "Validate a .blobify file of the workspace",
	}, bs.validateFile)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "format_document",
		Description: "Return .blobify text in canonical layout",
	}, bs.formatDocument)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "resolve_context",
		Description: "Resolve the inheritance chain of a context defined in a .blobify file",
	}, bs.resolveContext)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "rescan_workspace",
		Description: "Re-validate every .blobify file under the workspace root",
	}, bs.rescanWorkspace)

	s.AddResource(&mcp.Resource{
		Name:     "status",
		URI:      StatusURI,
		MIMEType: "application/json",
	}, bs.handleStatus)

	s.AddResource(&mcp.Resource{
		Name:     "diagnostics",
		URI:      DiagnosticsURI,
		MIMEType: "application/json",
	}, bs.handleDiagnostics)

	s.AddResource(&mcp.Resource{
		Name:     "contexts",
		URI:      ContextsURI,
		MIMEType: "application/json",
	}, bs.handleContexts)

	return s
}

// Tool Inputs

// ValidateDocumentInput defines the input parameters for validate_document.
type ValidateDocumentInput struct {
	Text string `json:"text" jsonschema:"the full .blobify document"`
}

// ValidateFileInput defines the input parameters for validate_file.
type ValidateFileInput struct {
	Path string `json:"path" jsonschema:"file path, relative to the workspace root or absolute"`
}

// FormatDocumentInput defines the input parameters for format_document.
type FormatDocumentInput struct {
	Text                 string `json:"text" jsonschema:"the full .blobify document"`
	MigrateLegacyFilters *bool  `json:"migrate_legacy_filters,omitempty" jsonschema:"rewrite name:regex filters into CSV form"`
}

// ResolveContextInput defines the input parameters for resolve_context.
type ResolveContextInput struct {
	Path string `json:"path" jsonschema:"file path, relative to the workspace root or absolute"`
	Name string `json:"name" jsonschema:"context name"`
}

// EmptyInput defines an empty input structure for tools that require no parameters.
type EmptyInput struct{}

// Tool results

// DocumentReport is the outcome of validating one document.
type DocumentReport struct {
	Path        string              `json:"path,omitempty"`
	Counts      analysis.Counts     `json:"counts"`
	Diagnostics []domain.Diagnostic `json:"diagnostics"`
	Contexts    []domain.Context    `json:"contexts,omitempty"`
}

// ContextResolution describes one context and its place in the graph.
type ContextResolution struct {
	Name             string   `json:"name"`
	Line             int      `json:"line"`
	DeclaredParents  []string `json:"declared_parents"`
	EffectiveParents []string `json:"effective_parents"`
	Ancestors        []string `json:"ancestors"`
	Descendants      []string `json:"descendants"`
}

// Tool Handlers

func (bs *BlobifyServer) validateDocument(ctx context.Context, req *mcp.CallToolRequest, input ValidateDocumentInput) (*mcp.CallToolResult, any, error) {
	res := analysis.Analyze(input.Text)
	return jsonResult(newReport("", res.Diagnostics, res.Graph.Contexts()))
}

func (bs *BlobifyServer) validateFile(ctx context.Context, req *mcp.CallToolRequest, input ValidateFileInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" {
		return errorResult("path required"), nil, nil
	}
	e, err := bs.Index.UpdateFile(bs.resolve(input.Path))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(newReport(e.Path, e.Diagnostics, e.Contexts))
}

func (bs *BlobifyServer) formatDocument(ctx context.Context, req *mcp.CallToolRequest, input FormatDocumentInput) (*mcp.CallToolResult, any, error) {
	opts := format.Options{
		BlankLineBeforeContext: bs.Config.Format.BlankLineBeforeContext,
		MigrateLegacyFilters:   bs.Config.Format.MigrateLegacyFilters,
	}
	if input.MigrateLegacyFilters != nil {
		opts.MigrateLegacyFilters = *input.MigrateLegacyFilters
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: format.Format(input.Text, opts)},
		},
	}, nil, nil
}

func (bs *BlobifyServer) resolveContext(ctx context.Context, req *mcp.CallToolRequest, input ResolveContextInput) (*mcp.CallToolResult, any, error) {
	if input.Path == "" || input.Name == "" {
		return errorResult("path and name required"), nil, nil
	}
	e, err := bs.Index.UpdateFile(bs.resolve(input.Path))
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	g := e.Result.Graph
	c, ok := g.Get(input.Name)
	if !ok {
		return errorResult(fmt.Sprintf("context '%s' is not defined in %s", input.Name, input.Path)), nil, nil
	}
	return jsonResult(ContextResolution{
		Name:             c.Name,
		Line:             c.Line,
		DeclaredParents:  nonNil(c.Parents),
		EffectiveParents: nonNil(g.EffectiveParents(c.Name)),
		Ancestors:        nonNil(g.Ancestors(c.Name)),
		Descendants:      nonNil(g.Descendants(c.Name)),
	})
}

func (bs *BlobifyServer) rescanWorkspace(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	n, err := bs.Index.Scan(ctx, bs.RootDir)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	bs.Logger.Info("workspace rescanned", "files", n)
	return jsonResult(map[string]any{
		"files":  n,
		"totals": bs.Index.Totals(),
	})
}

// Resource Handlers

func (bs *BlobifyServer) handleStatus(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	status := map[string]any{
		"root":   bs.RootDir,
		"files":  len(bs.Index.Entries()),
		"totals": bs.Index.Totals(),
		"status": "healthy",
	}
	return jsonResource(req, status)
}

func (bs *BlobifyServer) handleDiagnostics(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	reports := []DocumentReport{}
	for _, e := range bs.Index.Entries() {
		reports = append(reports, newReport(e.Path, e.Diagnostics, nil))
	}
	return jsonResource(req, reports)
}

func (bs *BlobifyServer) handleContexts(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	type fileContexts struct {
		Path     string           `json:"path"`
		Contexts []domain.Context `json:"contexts"`
	}
	out := []fileContexts{}
	for _, e := range bs.Index.Entries() {
		out = append(out, fileContexts{Path: e.Path, Contexts: nonNil(e.Contexts)})
	}
	return jsonResource(req, out)
}

func (bs *BlobifyServer) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(bs.RootDir, path)
}

func newReport(path string, diags []domain.Diagnostic, contexts []domain.Context) DocumentReport {
	return DocumentReport{
		Path:        path,
		Counts:      analysis.CountDiagnostics(diags),
		Diagnostics: nonNil(diags),
		Contexts:    contexts,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func jsonResource(req *mcp.ReadResourceRequest, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
