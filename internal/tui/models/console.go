package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialrepl/internal/tui/components"
	"github.com/allbin/serialrepl/internal/tui/keys"
	"github.com/allbin/serialrepl/internal/tui/styles"
	"github.com/allbin/serialrepl/repl"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// Manager is the part of repl.Manager the console drives.
type Manager interface {
	Open(port, baud int) (repl.ConnInfo, error)
	Send(port int, command string)
	PollAll()
	Pending(port int) []string
	Resync(port int) (int, error)
}

type ConnectionStatusMsg struct {
	Info  repl.ConnInfo
	Error error
}

type pollTickMsg time.Time

// pendingMsg reports the queue after a manager call completed.
type pendingMsg struct {
	pending []string
}

type polledMsg struct {
	pending []string
}

type resyncMsg struct {
	dropped int
	err     error
}

const pendingPanelWidth = 36

// Console is the bubbletea model of an interactive REPL session on one port.
// Manager calls run inside tea.Cmds so the update loop never waits on the
// device.
type Console struct {
	manager  Manager
	events   *repl.ChanObserver
	port     int
	baud     int
	interval time.Duration

	connected   bool
	ready       bool
	inputMode   InputMode
	showPending bool
	width       int
	height      int

	terminal  *components.Terminal
	pending   *components.PendingTable
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConsoleKeys
}

// NewConsole creates the model. events must be subscribed to manager.
func NewConsole(manager Manager, events *repl.ChanObserver, port, baud int, prompt string, interval time.Duration) *Console {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Console{
		manager:     manager,
		events:      events,
		port:        port,
		baud:        baud,
		interval:    interval,
		showPending: true,
		terminal:    components.NewTerminal(0, 0),
		pending:     components.NewPendingTable(pendingPanelWidth, 5),
		statusBar:   components.NewStatusBar(port, baud),
		input:       components.NewInput(prompt, "Type a command and press Enter..."),
		help:        help.New(),
		keys:        keys.NewConsoleKeys(),
	}
}

func (m *Console) Init() tea.Cmd {
	return tea.Batch(m.openCmd(), m.waitForPacket())
}

func (m *Console) openCmd() tea.Cmd {
	return func() tea.Msg {
		info, err := m.manager.Open(m.port, m.baud)
		return ConnectionStatusMsg{Info: info, Error: err}
	}
}

func (m *Console) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func (m *Console) pollCmd() tea.Cmd {
	return func() tea.Msg {
		m.manager.PollAll()
		return polledMsg{pending: m.manager.Pending(m.port)}
	}
}

func (m *Console) sendCmd(command string) tea.Cmd {
	return func() tea.Msg {
		m.manager.Send(m.port, command)
		return pendingMsg{pending: m.manager.Pending(m.port)}
	}
}

func (m *Console) resyncCmd() tea.Cmd {
	return func() tea.Msg {
		n, err := m.manager.Resync(m.port)
		return resyncMsg{dropped: n, err: err}
	}
}

// waitForPacket blocks on the observer channels and is re-armed after
// every delivery.
func (m *Console) waitForPacket() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-m.events.Errors:
			return components.PacketMsg{Kind: components.EntryError, Packet: p}
		case p := <-m.events.Sent:
			return components.PacketMsg{Kind: components.EntrySent, Packet: p}
		case p := <-m.events.Results:
			return components.PacketMsg{Kind: components.EntryResult, Packet: p}
		}
	}
}

func (m *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.ready = true

	case ConnectionStatusMsg:
		if msg.Error != nil {
			m.connected = false
			m.statusBar.SetDisconnected(msg.Error)
			return m, nil
		}
		m.connected = true
		m.statusBar.SetConnected(msg.Info)
		m.terminal.Add(components.InfoEntry("connected to %s at %d baud", msg.Info.PortName, msg.Info.BaudRate))
		m.inputMode = InputModeInsert
		m.input.Focus()
		cmds = append(cmds, m.tick())

	case pollTickMsg:
		if m.connected {
			cmds = append(cmds, m.pollCmd())
		}

	case pendingMsg:
		m.setPending(msg.pending)

	case polledMsg:
		// The next tick is armed only after a poll returns, so polls never overlap
		m.setPending(msg.pending)
		cmds = append(cmds, m.tick())

	case resyncMsg:
		if msg.err != nil {
			m.terminal.Add(components.InfoEntry("resync failed: %v", msg.err))
		} else {
			m.terminal.Add(components.InfoEntry("dropped %d pending command(s)", msg.dropped))
			m.setPending(nil)
		}

	case components.PacketMsg:
		if msg.Kind == components.EntryError {
			m.statusBar.CountError()
		}
		m.terminal.Add(components.NewEntry(msg))
		cmds = append(cmds, m.waitForPacket())

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.inputMode == InputModeInsert {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Console) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.inputMode == InputModeInsert {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.inputMode = InputModeNormal
			m.input.Blur()
			return nil, true
		case msg.Type == tea.KeyCtrlC:
			return tea.Quit, true
		case key.Matches(msg, m.keys.Enter):
			command := strings.TrimSpace(m.input.Value())
			if command == "" || !m.connected {
				return nil, true
			}
			m.input.AddToHistory(command)
			m.input.SetValue("")
			return m.sendCmd(command), true
		case key.Matches(msg, m.keys.Up):
			m.input.NavigateHistoryUp()
			return nil, true
		case key.Matches(msg, m.keys.Down):
			m.input.NavigateHistoryDown()
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.InsertMode):
		m.inputMode = InputModeInsert
		m.input.Focus()
		return nil, true
	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
		return nil, true
	case key.Matches(msg, m.keys.Resync):
		if !m.connected {
			return nil, true
		}
		return m.resyncCmd(), true
	case key.Matches(msg, m.keys.TogglePending):
		m.showPending = !m.showPending
		m.layout()
		return nil, true
	case key.Matches(msg, m.keys.ToggleTimestamps):
		m.terminal.ToggleTimestamps()
		return nil, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return nil, true
	}
	return nil, false
}

func (m *Console) setPending(commands []string) {
	m.pending.SetCommands(commands)
	m.statusBar.SetPending(len(commands))
}

func (m *Console) layout() {
	// input box (3) + status bar (1) + content border (1)
	reserved := 5
	if m.help.ShowAll {
		reserved += 4
	}
	contentHeight := m.height - reserved
	if contentHeight < 3 {
		contentHeight = 3
	}

	logWidth := m.width
	if m.showPending {
		logWidth -= pendingPanelWidth + 2
		m.pending.SetSize(pendingPanelWidth, contentHeight-3)
	}
	if logWidth < 20 {
		logWidth = 20
	}

	m.terminal.SetSize(logWidth, contentHeight)
	m.input.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

func (m *Console) View() string {
	if !m.ready {
		return "Initializing..."
	}

	content := m.terminal.View()
	if m.showPending {
		panel := styles.PanelStyle.Render(m.pending.View())
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	parts := []string{
		styles.ContentBorderStyle.Render(content),
		m.input.View(m.inputMode == InputModeInsert),
		m.statusBar.View(m.inputMode.String(), time.Now().Format("15:04:05")),
	}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Connected reports whether the port opened successfully.
func (m *Console) Connected() bool {
	return m.connected
}

// Err is the open failure shown in the status bar, if any.
func (m *Console) Err() error {
	return m.statusBar.Err()
}

// Entries returns the log shown in the console.
func (m *Console) Entries() []components.Entry {
	return m.terminal.Entries()
}

func (m *Console) String() string {
	return fmt.Sprintf("console(port=%d, connected=%t, mode=%s)", m.port, m.connected, m.inputMode)
}
