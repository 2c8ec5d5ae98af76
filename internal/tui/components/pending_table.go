package components

import (
	"strconv"

	"github.com/allbin/serialrepl/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// PendingTable lists the commands still waiting for their echo, oldest
// first. The top row is the one the next reply is matched against.
type PendingTable struct {
	table    table.Model
	commands []string
}

func NewPendingTable(width, height int) *PendingTable {
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	t := table.New(
		table.WithColumns(pendingColumns(width)),
		table.WithFocused(false),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Sent).
		Bold(true)
	t.SetStyles(s)

	return &PendingTable{table: t}
}

func pendingColumns(width int) []table.Column {
	const numWidth = 4
	cmdWidth := width - numWidth - 4
	if cmdWidth < 10 {
		cmdWidth = 10
	}
	return []table.Column{
		{Title: "#", Width: numWidth},
		{Title: "Awaiting echo", Width: cmdWidth},
	}
}

func (pt *PendingTable) SetSize(width, height int) {
	pt.table.SetColumns(pendingColumns(width))
	pt.table.SetHeight(height)
	pt.table.SetWidth(width)
	pt.table.UpdateViewport()
}

func (pt *PendingTable) SetCommands(commands []string) {
	pt.commands = commands
	rows := make([]table.Row, len(commands))
	for i, c := range commands {
		rows[i] = table.Row{strconv.Itoa(i + 1), c}
	}
	pt.table.SetRows(rows)
	pt.table.SetCursor(0)
	pt.table.UpdateViewport()
}

func (pt *PendingTable) Len() int {
	return len(pt.commands)
}

func (pt *PendingTable) View() string {
	return pt.table.View()
}
