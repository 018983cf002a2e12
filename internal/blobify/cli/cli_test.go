package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/blobify/blobify-lang/internal/blobify/export"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheck_ReportsErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.blobify", "[a]\n+*.go\n")
	writeFile(t, dir, "nested/bad.blobify", "[a]\n[a]\n")
	writeFile(t, dir, "notes.txt", "[a]\n[a]\n")

	out, err := execute(t, "", "check", dir)
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "bad.blobify:2: error: Duplicate context name: a")
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, out, "2 files checked: 1 errors, 0 warnings, 0 infos")
}

func TestCheck_WarningsDoNotFail(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.blobify", "@debug=yes\n@filter=a:b\n")

	out, err := execute(t, "", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "x.blobify:1: warning: Option 'debug' expects 'true' or 'false', got 'yes'")
	assert.Contains(t, out, "x.blobify:2: information: ")
}

func TestCheck_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.blobify", "oops\n")

	out, err := execute(t, "", "check", dir, "-o", "json")
	require.ErrorIs(t, err, ErrIssuesFound)

	var report export.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Files, 1)
	assert.Equal(t, 1, report.Totals.Errors)
	require.Len(t, report.Files[0].Diagnostics, 1)
	assert.Equal(t, 0, report.Files[0].Diagnostics[0].Line)
}

func TestCheck_Table(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.blobify", "[b:missing]\n")

	out, err := execute(t, "", "check", dir, "-o", "table")
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "unknown-parent")
}

func TestCheck_MissingPath(t *testing.T) {
	_, err := execute(t, "", "check", filepath.Join(t.TempDir(), "nope.blobify"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIssuesFound)
}

func TestCheck_ExplicitFileInsideDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.blobify", "[a]\n")
	writeFile(t, dir, "notes.txt", "junk line\n")
	writeFile(t, dir, "node_modules/dep.blobify", "[a]\n[a]\n")

	out, err := execute(t, "", "check", dir,
		filepath.Join(dir, "notes.txt"), filepath.Join(dir, "node_modules", "dep.blobify"))
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "notes.txt:1: error: Invalid line")
	assert.Contains(t, out, "dep.blobify:2: error: Duplicate context name: a")
	assert.Contains(t, out, "3 files checked: 2 errors, 0 warnings, 0 infos")
}

func TestCheck_SameFileTwice(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.blobify", "[a]\n")

	out, err := execute(t, "", "check", dir, path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 files checked: 0 errors, 0 warnings, 0 infos")
}

func TestRoot_InvalidOutput(t *testing.T) {
	_, err := execute(t, "", "check", t.TempDir(), "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")
}

func TestFmt_Print(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.blobify", "  +*.go  \n[a]\n\n\n[b : a]\n")

	out, err := execute(t, "", "fmt", path)
	require.NoError(t, err)
	assert.Equal(t, "+*.go\n\n[a]\n\n[b:a]\n", out)
}

func TestFmt_Stdin(t *testing.T) {
	out, err := execute(t, "@filter=n:^x\n", "fmt", "-", "--migrate-filters")
	require.NoError(t, err)
	assert.Equal(t, "@filter=\"n\",\"^x\",\"*\"\n", out)
}

func TestFmt_CheckAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.blobify", "[a]\n[b]\n")
	writeFile(t, dir, "clean.blobify", "[a]\n")

	out, err := execute(t, "", "fmt", "--check", dir)
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, out, "a.blobify")
	assert.NotContains(t, out, "clean.blobify")

	_, err = execute(t, "", "fmt", "--write", dir)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[a]\n\n[b]\n", string(got))

	_, err = execute(t, "", "fmt", "--check", dir)
	assert.NoError(t, err)
}

func TestContexts(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.blobify", "[base]\n[docs:base]\n[all:docs,nope]\n")

	out, err := execute(t, "", "contexts", path, "-o", "json")
	require.NoError(t, err)
	var infos []ContextInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 3)
	assert.Equal(t, ContextInfo{
		Name:             "all",
		Line:             3,
		Parents:          []string{"docs", "nope"},
		EffectiveParents: []string{"docs"},
		Ancestors:        []string{"docs", "base", "default"},
	}, infos[2])

	out, err = execute(t, "", "contexts", path, "-o", "yaml")
	require.NoError(t, err)
	var fromYAML []ContextInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, infos, fromYAML)

	out, err = execute(t, "", "contexts", path)
	require.NoError(t, err)
	assert.Contains(t, out, "docs -> base -> default")
}

func TestContexts_None(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.blobify", "+*.go\n")
	out, err := execute(t, "", "contexts", path)
	require.NoError(t, err)
	assert.Equal(t, "No contexts declared.\n", out)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.blobify", "[a]\n[b:a]\n")

	jsonOut := filepath.Join(dir, "report.json")
	_, err := execute(t, "", "export", dir, "--format", "json", "--out", jsonOut)
	require.NoError(t, err)
	data, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"generated_at"`)

	drawing := filepath.Join(dir, "ctx.excalidraw")
	_, err = execute(t, "", "export", path, "--format", "excalidraw", "--out", drawing)
	require.NoError(t, err)
	data, err = os.ReadFile(drawing)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type": "excalidraw"`)

	_, err = execute(t, "", "export", dir, "--format", "excalidraw")
	assert.ErrorContains(t, err, "is a directory")

	_, err = execute(t, "", "export", dir, "--format", "svg")
	assert.ErrorContains(t, err, "unknown export format")
}

func TestLSP_StopsAtEOF(t *testing.T) {
	_, err := execute(t, "", "lsp")
	assert.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "blobify-lang v"+Version+"\n", out)
}
