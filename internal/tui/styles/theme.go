package styles

import (
	"github.com/allbin/serialrepl/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)
)

// Style and label of each console log entry kind.
var (
	SentStyle        = lipgloss.NewStyle().Foreground(colors.Sent).Bold(true)
	ResultStyle      = lipgloss.NewStyle().Foreground(colors.Result).Bold(true)
	UnsolicitedStyle = lipgloss.NewStyle().Foreground(colors.Unsolicited).Bold(true)
	ErrorStyle       = lipgloss.NewStyle().Foreground(colors.Failure).Bold(true)
	InfoStyle        = lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)
)

type StatusType int

const (
	StatusConnected StatusType = iota
	StatusDisconnected
	StatusConnecting
	StatusError
)

func GetStatusStyle(status StatusType) lipgloss.Style {
	switch status {
	case StatusConnected:
		return lipgloss.NewStyle().Foreground(colors.Green)
	case StatusConnecting:
		return lipgloss.NewStyle().Foreground(colors.Yellow)
	default:
		return lipgloss.NewStyle().Foreground(colors.Red)
	}
}
