package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobify/blobify-lang/internal/blobify/config"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

func newIndex(t *testing.T) *workspace.Index {
	t.Helper()
	idx := workspace.NewIndex(config.Default(t.TempDir()), nil, nil)
	idx.Update("a.blobify", []byte("[base]\n[docs:base]\n[docs]"))
	idx.Update("b.blobify", []byte("+*.go"))
	return idx
}

func resize(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func TestModel_InitializingBeforeResize(t *testing.T) {
	m := NewModel(newIndex(t))
	assert.Nil(t, m.Init())
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_ShowsFileDiagnostics(t *testing.T) {
	m := resize(t, NewModel(newIndex(t)))

	assert.Len(t, m.lists[columnFiles].Items(), 2)
	assert.Len(t, m.lists[columnContexts].Items(), 2)

	details := m.renderDetails()
	assert.Contains(t, details, "File: a.blobify")
	assert.Contains(t, details, "Duplicate context name: docs")
	assert.Contains(t, m.View(), "a.blobify")
}

func TestModel_TabFocusesContexts(t *testing.T) {
	m := resize(t, NewModel(newIndex(t)))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, columnContexts, m.focused)

	details := m.renderDetails()
	assert.Contains(t, details, "Context: base (line 1)")
	assert.Contains(t, details, "-> default")
	assert.Contains(t, details, "<- docs")
}

func TestModel_SelectionMovesContexts(t *testing.T) {
	m := resize(t, NewModel(newIndex(t)))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, "b.blobify", m.selected)
	assert.Empty(t, m.lists[columnContexts].Items())
	assert.Contains(t, m.renderDetails(), "No problems found.")
}

func TestModel_Quit(t *testing.T) {
	m := resize(t, NewModel(newIndex(t)))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_EmptyIndex(t *testing.T) {
	idx := workspace.NewIndex(config.Default(t.TempDir()), nil, nil)
	m := resize(t, NewModel(idx))
	assert.Equal(t, "No .blobify files found.", m.renderDetails())
}
