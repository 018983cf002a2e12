package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

func newTestServer(t *testing.T, files map[string]string) *BlobifyServer {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	cfg := config.Default(root)
	return &BlobifyServer{
		Index:   workspace.NewIndex(cfg, nil, nil),
		Config:  cfg,
		RootDir: root,
	}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var v T
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &v))
	return v
}

func TestNewServer(t *testing.T) {
	bs := newTestServer(t, nil)
	assert.NotNil(t, NewServer(bs, "test"))
	assert.NotNil(t, bs.Logger)
}

func TestValidateDocument(t *testing.T) {
	bs := newTestServer(t, nil)
	res, _, err := bs.validateDocument(context.Background(), nil, ValidateDocumentInput{
		Text: "[a]\n[b:a]\n[c:a,b]\n[b]",
	})
	require.NoError(t, err)

	report := decode[DocumentReport](t, res)
	assert.Equal(t, 1, report.Counts.Errors)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, 3, report.Diagnostics[0].Line)
	assert.Equal(t, domain.CodeDuplicateContext, report.Diagnostics[0].Code)
	assert.Len(t, report.Contexts, 3)
}

func TestValidateFile(t *testing.T) {
	bs := newTestServer(t, map[string]string{"conf/a.blobify": "+\n@debug=maybe\n"})

	res, _, err := bs.validateFile(context.Background(), nil, ValidateFileInput{Path: "conf/a.blobify"})
	require.NoError(t, err)
	report := decode[DocumentReport](t, res)
	assert.Equal(t, filepath.Join(bs.RootDir, "conf", "a.blobify"), report.Path)
	assert.Equal(t, 1, report.Counts.Errors)
	assert.Equal(t, 1, report.Counts.Warnings)

	res, _, err = bs.validateFile(context.Background(), nil, ValidateFileInput{Path: "missing.blobify"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, _, _ = bs.validateFile(context.Background(), nil, ValidateFileInput{})
	assert.True(t, res.IsError)
}

func TestFormatDocument(t *testing.T) {
	bs := newTestServer(t, nil)
	in := "  +a\n[x]\n@filter=n:^a\\s"

	res, _, err := bs.formatDocument(context.Background(), nil, FormatDocumentInput{Text: in})
	require.NoError(t, err)
	assert.Equal(t, "+a\n\n[x]\n@filter=n:^a\\s\n", text(t, res))

	migrate := true
	res, _, err = bs.formatDocument(context.Background(), nil, FormatDocumentInput{Text: in, MigrateLegacyFilters: &migrate})
	require.NoError(t, err)
	assert.Equal(t, "+a\n\n[x]\n@filter=\"n\",\"^a\\\\\\\\s\",\"*\"\n", text(t, res))
}

func TestResolveContext(t *testing.T) {
	bs := newTestServer(t, map[string]string{
		"a.blobify": "[base]\n[docs:base]\n[code:base]\n[all:docs,code]\n[solo]\n",
	})

	res, _, err := bs.resolveContext(context.Background(), nil, ResolveContextInput{Path: "a.blobify", Name: "all"})
	require.NoError(t, err)
	got := decode[ContextResolution](t, res)
	assert.Equal(t, ContextResolution{
		Name:             "all",
		Line:             3,
		DeclaredParents:  []string{"docs", "code"},
		EffectiveParents: []string{"docs", "code"},
		Ancestors:        []string{"docs", "base", "code", "default"},
		Descendants:      []string{},
	}, got)

	res, _, err = bs.resolveContext(context.Background(), nil, ResolveContextInput{Path: "a.blobify", Name: "solo"})
	require.NoError(t, err)
	solo := decode[ContextResolution](t, res)
	assert.Empty(t, solo.DeclaredParents)
	assert.Equal(t, []string{"default"}, solo.EffectiveParents)

	res, _, err = bs.resolveContext(context.Background(), nil, ResolveContextInput{Path: "a.blobify", Name: "nope"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "'nope' is not defined")
}

func TestRescanAndResources(t *testing.T) {
	bs := newTestServer(t, map[string]string{
		"one.blobify":       "[a]\n",
		"two.blobify":       "junk\n@filter=x:y\n",
		".git/skip.blobify": "junk\n",
	})

	res, _, err := bs.rescanWorkspace(context.Background(), nil, EmptyInput{})
	require.NoError(t, err)
	scan := decode[map[string]any](t, res)
	assert.Equal(t, float64(2), scan["files"])

	read := func(uri string, handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) string {
		out, err := handler(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
		require.NoError(t, err)
		require.Len(t, out.Contents, 1)
		assert.Equal(t, uri, out.Contents[0].URI)
		assert.Equal(t, "application/json", out.Contents[0].MIMEType)
		return out.Contents[0].Text
	}

	var status struct {
		Files  int `json:"files"`
		Totals struct {
			Errors       int `json:"errors"`
			Informations int `json:"informations"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(read(StatusURI, bs.handleStatus)), &status))
	assert.Equal(t, 2, status.Files)
	assert.Equal(t, 1, status.Totals.Errors)
	assert.Equal(t, 1, status.Totals.Informations)

	var reports []DocumentReport
	require.NoError(t, json.Unmarshal([]byte(read(DiagnosticsURI, bs.handleDiagnostics)), &reports))
	require.Len(t, reports, 2)
	assert.Empty(t, reports[0].Diagnostics)
	assert.Len(t, reports[1].Diagnostics, 2)

	var contexts []struct {
		Path     string           `json:"path"`
		Contexts []domain.Context `json:"contexts"`
	}
	require.NoError(t, json.Unmarshal([]byte(read(ContextsURI, bs.handleContexts)), &contexts))
	require.Len(t, contexts, 2)
	require.Len(t, contexts[0].Contexts, 1)
	assert.Equal(t, "a", contexts[0].Contexts[0].Name)
}
