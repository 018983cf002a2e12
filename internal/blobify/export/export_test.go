package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobify/blobify-lang/internal/blobify/analysis"
	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

const sample = "[base]\n[docs:base]\n[code:base]\n[all:docs,code]\n"

func elementsByType(scene ExcalidrawScene, typ string) []ExcalidrawElement {
	var out []ExcalidrawElement
	for _, el := range scene.Elements {
		if el.Type == typ {
			out = append(out, el)
		}
	}
	return out
}

func TestBuildScene(t *testing.T) {
	res := analysis.Analyze(sample)
	scene := BuildScene(res.Graph)

	assert.Equal(t, "excalidraw", scene.Type)
	rects := elementsByType(scene, "rectangle")
	texts := elementsByType(scene, "text")
	arrows := elementsByType(scene, "arrow")

	// default, base, docs, code, all
	require.Len(t, rects, 5)
	assert.Len(t, texts, 5)
	// base->default, docs->base, code->base, all->docs, all->code
	assert.Len(t, arrows, 5)

	ids := make(map[string]ExcalidrawElement)
	for _, r := range rects {
		ids[r.ID] = r
	}
	for _, a := range arrows {
		require.NotNil(t, a.StartBinding)
		require.NotNil(t, a.EndBinding)
		from, ok := ids[a.StartBinding.ElementID]
		require.True(t, ok)
		to, ok := ids[a.EndBinding.ElementID]
		require.True(t, ok)
		assert.Greater(t, from.Y, to.Y, "arrows point up towards parents")
	}
}

func TestBuildScene_RowsByDepth(t *testing.T) {
	res := analysis.Analyze(sample)
	scene := BuildScene(res.Graph)

	y := make(map[string]float64)
	for _, el := range elementsByType(scene, "text") {
		name, _, _ := strings.Cut(el.Text, "\n")
		y[name] = el.Y
	}
	assert.Less(t, y["default"], y["base"])
	assert.Equal(t, y["docs"], y["code"])
	assert.Less(t, y["code"], y["all"])
}

func TestBuildScene_StableIDs(t *testing.T) {
	first := BuildScene(analysis.Analyze(sample).Graph)
	second := BuildScene(analysis.Analyze(sample).Graph)
	require.Equal(t, len(first.Elements), len(second.Elements))
	for i := range first.Elements {
		assert.Equal(t, first.Elements[i].ID, second.Elements[i].ID)
	}
}

func TestExportExcalidraw(t *testing.T) {
	out := filepath.Join(t.TempDir(), "contexts.excalidraw")
	require.NoError(t, ExportExcalidraw(analysis.Analyze(sample).Graph, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var scene ExcalidrawScene
	require.NoError(t, json.Unmarshal(data, &scene))
	assert.Equal(t, "blobify-lang", scene.Source)
	assert.NotEmpty(t, scene.Elements)
}

func TestExportJSON(t *testing.T) {
	idx := workspace.NewIndex(config.Default(t.TempDir()), nil, nil)
	idx.Update("b.blobify", []byte("[a]\n[a]"))
	idx.Update("a.blobify", []byte("+*.go"))

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(idx.Entries(), &buf))

	var report struct {
		GeneratedAt string          `json:"generated_at"`
		Totals      analysis.Counts `json:"totals"`
		Files       []struct {
			Path        string            `json:"path"`
			Counts      analysis.Counts   `json:"counts"`
			Diagnostics []json.RawMessage `json:"diagnostics"`
			Contexts    []json.RawMessage `json:"contexts"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))

	assert.NotEmpty(t, report.GeneratedAt)
	assert.Equal(t, analysis.Counts{Errors: 1}, report.Totals)
	require.Len(t, report.Files, 2)
	assert.Equal(t, "a.blobify", report.Files[0].Path)
	assert.NotNil(t, report.Files[0].Diagnostics)
	assert.Empty(t, report.Files[0].Diagnostics)
	assert.Len(t, report.Files[1].Diagnostics, 1)
	assert.Len(t, report.Files[1].Contexts, 1)
}
