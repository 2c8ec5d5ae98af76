package components

import (
	"fmt"

	"github.com/allbin/serialrepl/internal/tui/colors"
	"github.com/allbin/serialrepl/internal/tui/styles"
	"github.com/allbin/serialrepl/repl"
	"github.com/charmbracelet/lipgloss"
)

// StatusBar is the single bottom line of the console.
type StatusBar struct {
	port    int
	baud    int
	path    string
	status  styles.StatusType
	err     error
	pending int
	errors  int
	width   int
}

func NewStatusBar(port, baud int) *StatusBar {
	return &StatusBar{port: port, baud: baud, status: styles.StatusConnecting}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnected(info repl.ConnInfo) {
	sb.path = info.PortName
	sb.baud = info.BaudRate
	sb.status = styles.StatusConnected
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.err = err
	if err != nil {
		sb.status = styles.StatusError
	} else {
		sb.status = styles.StatusDisconnected
	}
}

func (sb *StatusBar) SetPending(n int) {
	sb.pending = n
}

func (sb *StatusBar) CountError() {
	sb.errors++
}

// Err is the connection failure, if any.
func (sb *StatusBar) Err() error {
	return sb.err
}

func (sb *StatusBar) indicator() string {
	symbol := "○"
	switch sb.status {
	case styles.StatusConnected:
		symbol = "●"
	case styles.StatusError:
		symbol = "✗"
	}
	return styles.GetStatusStyle(sb.status).Render(symbol)
}

// View renders mode, port and connection state on the left and queue
// depth, error count and clock on the right.
func (sb *StatusBar) View(inputMode, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeBackground := colors.Blue
	if inputMode == "INSERT" {
		modeBackground = colors.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeBackground).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	name := fmt.Sprintf("port %d", sb.port)
	if sb.path != "" {
		name = fmt.Sprintf("port %d %s", sb.port, sb.path)
	}
	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(name)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, sb.indicator(), divider)
	if sb.err != nil {
		msg := styles.ErrorStyle.Padding(0, 1).Render(sb.err.Error())
		leftSide = lipgloss.JoinHorizontal(lipgloss.Left, leftSide, msg)
	}

	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %d baud 8N1  pending:%d  errors:%d", sb.baud, sb.pending, sb.errors))
	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
