// Package tui is an interactive browser over the analyzed workspace.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/blobify/blobify-lang/internal/blobify/domain"
	"github.com/blobify/blobify-lang/internal/blobify/workspace"
)

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	focusedStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	normalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f1fa8c"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd"))
)

const (
	columnFiles = iota
	columnContexts
)

type fileItem struct {
	entry *workspace.Entry
}

func (i fileItem) Title() string { return i.entry.Path }
func (i fileItem) Description() string {
	c := i.entry.Counts()
	return fmt.Sprintf("%d errors, %d warnings, %d infos", c.Errors, c.Warnings, c.Informations)
}
func (i fileItem) FilterValue() string { return i.entry.Path }

type contextItem struct {
	entry   *workspace.Entry
	context domain.Context
}

func (i contextItem) Title() string { return i.context.Name }
func (i contextItem) Description() string {
	if len(i.context.Parents) == 0 {
		return fmt.Sprintf("line %d", i.context.Line+1)
	}
	return fmt.Sprintf("line %d: %s", i.context.Line+1, strings.Join(i.context.Parents, ", "))
}
func (i contextItem) FilterValue() string { return i.context.Name }

// Model lists analyzed files next to the contexts of the selected file,
// with the details of the selection below.
type Model struct {
	index *workspace.Index

	lists    []list.Model
	focused  int
	viewport viewport.Model
	selected string

	ready  bool
	width  int
	height int
}

// NewModel returns a Model browsing the files held by idx.
func NewModel(idx *workspace.Index) Model {
	files := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	files.Title = "Files"
	files.SetShowHelp(false)

	contexts := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	contexts.Title = "Contexts"
	contexts.SetShowHelp(false)

	m := Model{
		index: idx,
		lists: []list.Model{files, contexts},
	}
	m.reload()
	return m
}

// reload refreshes the file column from the index.
func (m *Model) reload() {
	entries := m.index.Entries()
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, fileItem{entry: e})
	}
	m.lists[columnFiles].SetItems(items)
	m.selected = ""
	m.syncContexts()
}

// syncContexts rebuilds the context column when the file selection moves.
func (m *Model) syncContexts() {
	it, ok := m.lists[columnFiles].SelectedItem().(fileItem)
	if !ok {
		m.lists[columnContexts].SetItems(nil)
		m.selected = ""
		return
	}
	if it.entry.Path == m.selected {
		return
	}
	m.selected = it.entry.Path
	items := make([]list.Item, 0, len(it.entry.Contexts))
	for _, c := range it.entry.Contexts {
		items = append(items, contextItem{entry: it.entry, context: c})
	}
	m.lists[columnContexts].SetItems(items)
	m.lists[columnContexts].ResetSelected()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.focused = (m.focused + 1) % len(m.lists)
			m.viewport.SetContent(m.renderDetails())
			return m, nil
		case "r":
			m.reload()
			m.viewport.SetContent(m.renderDetails())
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height/3)
			m.viewport.YPosition = msg.Height - msg.Height/3
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height / 3
		}

		colWidth := msg.Width / len(m.lists)
		listHeight := msg.Height - m.viewport.Height - 5
		for i := range m.lists {
			m.lists[i].SetSize(colWidth-2, listHeight)
		}
	}

	m.lists[m.focused], cmd = m.lists[m.focused].Update(msg)
	cmds = append(cmds, cmd)
	if m.focused == columnFiles {
		m.syncContexts()
	}

	m.viewport.SetContent(m.renderDetails())
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	cols := make([]string, len(m.lists))
	for i, l := range m.lists {
		style := normalStyle
		if i == m.focused {
			style = focusedStyle
		}
		cols[i] = style.Render(l.View())
	}
	board := lipgloss.JoinHorizontal(lipgloss.Left, cols...)
	details := detailStyle.Width(m.width - 4).Render(m.viewport.View())

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, board, details))
}

func (m Model) renderDetails() string {
	if m.focused == columnContexts {
		if it, ok := m.lists[columnContexts].SelectedItem().(contextItem); ok {
			return renderContext(it)
		}
	}
	if it, ok := m.lists[columnFiles].SelectedItem().(fileItem); ok {
		return renderFile(it.entry)
	}
	return "No .blobify files found."
}

func renderFile(e *workspace.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", e.Path)
	if !e.AnalyzedAt.IsZero() {
		fmt.Fprintf(&sb, "Analyzed: %s\n", e.AnalyzedAt.Format("2006-01-02 15:04:05"))
	}

	sb.WriteString("\nDiagnostics:\n")
	if len(e.Diagnostics) == 0 {
		sb.WriteString("No problems found.\n")
	}
	for _, d := range e.Diagnostics {
		sb.WriteString(severityStyle(d.Severity).Render(
			fmt.Sprintf("%d: [%s] %s", d.Line+1, d.Severity, d.Message)) + "\n")
	}
	return sb.String()
}

func renderContext(it contextItem) string {
	var sb strings.Builder
	c := it.context
	fmt.Fprintf(&sb, "Context: %s (line %d)\n", c.Name, c.Line+1)
	if len(c.Parents) > 0 {
		fmt.Fprintf(&sb, "Declared parents: %s\n", strings.Join(c.Parents, ", "))
	}

	// Entries restored from the database carry no graph.
	if it.entry.Result == nil {
		return sb.String()
	}
	g := it.entry.Result.Graph

	sb.WriteString("\nInherits from:\n")
	for _, a := range g.Ancestors(c.Name) {
		fmt.Fprintf(&sb, "-> %s\n", a)
	}

	sb.WriteString("\nInherited by:\n")
	desc := g.Descendants(c.Name)
	if len(desc) == 0 {
		sb.WriteString("nothing\n")
	}
	for _, d := range desc {
		fmt.Fprintf(&sb, "<- %s\n", d)
	}

	for _, d := range it.entry.Result.OnLine(c.Line) {
		sb.WriteString(severityStyle(d.Severity).Render(fmt.Sprintf("\n[%s] %s", d.Severity, d.Message)) + "\n")
	}
	return sb.String()
}

func severityStyle(s domain.Severity) lipgloss.Style {
	switch s {
	case domain.SeverityError:
		return errorStyle
	case domain.SeverityWarning:
		return warningStyle
	}
	return infoStyle
}

// Run blocks until the user quits.
func Run(idx *workspace.Index) error {
	_, err := tea.NewProgram(NewModel(idx), tea.WithAltScreen()).Run()
	return err
}
