package components

import (
	"strings"

	"github.com/allbin/serialrepl/internal/tui/colors"
	"github.com/allbin/serialrepl/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxHistory = 100

// Input is the command line with shell-style history.
type Input struct {
	textInput     textinput.Model
	prompt        string
	history       []string
	historyIndex  int
	currentInput  string // Store current input when navigating history
	terminalWidth int
}

func NewInput(prompt, placeholder string) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	ti.Prompt = "" // We handle prompt styling separately

	return &Input{
		textInput:    ti,
		prompt:       prompt,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// border(2) + padding(2) + prompt + space
	usableWidth := width - 5 - lipgloss.Width(i.prompt)
	if usableWidth < 20 {
		usableWidth = 20
	}
	i.textInput.Width = usableWidth
}

func (i *Input) Focus() {
	i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) View(isInsertMode bool) string {
	promptStyle := lipgloss.NewStyle().
		Foreground(colors.Green).
		Bold(true)
	styledPrompt := promptStyle.Render(i.prompt)

	var content string
	if isInsertMode {
		content = lipgloss.JoinHorizontal(lipgloss.Left, styledPrompt, " ", i.textInput.View())
	} else {
		instruction := styles.MutedStyle.Render("Press 'i' to type a command")
		content = lipgloss.JoinHorizontal(lipgloss.Left, styledPrompt, " ", instruction)
	}

	// RoundedBorder and Padding(0, 1) take 4 columns
	adjustedWidth := i.terminalWidth - 4
	if adjustedWidth < 10 {
		adjustedWidth = 10
	}

	inputStyle := styles.InputStyle.
		Width(adjustedWidth).
		AlignHorizontal(lipgloss.Left)
	if isInsertMode {
		inputStyle = inputStyle.BorderForeground(colors.Green)
	}

	return inputStyle.Render(content)
}

// AddToHistory records command unless it is blank or repeats the last one.
func (i *Input) AddToHistory(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}

	if len(i.history) == 0 || i.history[len(i.history)-1] != command {
		i.history = append(i.history, command)
		if len(i.history) > maxHistory {
			i.history = i.history[1:]
		}
	}

	i.historyIndex = -1
	i.currentInput = ""
}

func (i *Input) History() []string {
	return i.history
}

// NavigateHistoryUp moves up in command history
func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}

	// First time navigating: save current input
	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}

	i.textInput.SetValue(i.history[i.historyIndex])
}

// NavigateHistoryDown moves down in command history
func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
	} else {
		// Back to current input
		i.historyIndex = -1
		i.textInput.SetValue(i.currentInput)
		i.currentInput = ""
	}
}
