package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxEntries bounds the console scrollback.
const maxEntries = 2000

// Terminal is the scrolling packet log.
type Terminal struct {
	viewport  viewport.Model
	formatter *Formatter
	entries   []Entry
	lines     []string
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewFormatter(),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) Add(e Entry) {
	t.entries = append(t.entries, e)
	t.lines = append(t.lines, t.formatter.Format(e))
	if len(t.entries) > maxEntries {
		t.entries = t.entries[len(t.entries)-maxEntries:]
		t.lines = t.lines[len(t.lines)-maxEntries:]
	}
	t.render()
}

func (t *Terminal) Entries() []Entry {
	return t.entries
}

func (t *Terminal) Clear() {
	t.entries = nil
	t.lines = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleTimestamps() {
	t.formatter.ToggleTimestamps()
	t.lines = t.formatter.FormatAll(t.entries)
	t.render()
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key messages stay with the console bindings
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
