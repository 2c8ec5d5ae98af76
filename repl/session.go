package repl

import (
	"fmt"
	"log/slog"
	"strings"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUnopened State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session owns one device connection and the queue of commands written to
// it whose echo has not been seen yet. A Session has no locking of its own;
// the Manager serializes all access.
type Session struct {
	port    int
	baud    int
	path    string
	state   State
	conn    Conn
	pending []string

	dialer    Dialer
	match     MatchFunc
	prompt    string
	logger    *slog.Logger
	observers observers
}

// NewSession creates an unopened session for a logical port.
func NewSession(port, baud int, opts ...Option) *Session {
	return newSession(port, baud, buildOptions(opts))
}

func newSession(port, baud int, o options) *Session {
	s := &Session{
		port:   port,
		baud:   baud,
		dialer: o.dialer,
		match:  o.match,
		prompt: o.prompt,
		logger: o.logger.With("port", port),
	}
	s.observers = append(s.observers, o.observers...)
	return s
}

// Subscribe adds an observer for this session's notifications.
func (s *Session) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Session) Port() int { return s.port }

func (s *Session) BaudRate() int { return s.baud }

// PortName is the device path chosen by Open, empty before that.
func (s *Session) PortName() string { return s.path }

func (s *Session) State() State { return s.state }

// Pending returns a copy of the commands awaiting their echo, oldest first.
func (s *Session) Pending() []string {
	return append([]string(nil), s.pending...)
}

// Info returns the connection metadata.
func (s *Session) Info() ConnInfo {
	return ConnInfo{Port: s.port, BaudRate: s.baud, PortName: s.path}
}

func (s *Session) packet() Packet {
	return Packet{Port: s.port, BaudRate: s.baud, PortName: s.path}
}

// Open enumerates devices, selects one with the match policy and opens it.
func (s *Session) Open() (ConnInfo, error) {
	if s.state != StateUnopened {
		return ConnInfo{}, fmt.Errorf("port %d: cannot open a %s session", s.port, s.state)
	}

	candidates, err := s.dialer.Ports()
	if err != nil {
		return ConnInfo{}, fmt.Errorf("port %d: enumerate devices: %w", s.port, err)
	}

	path, ok := s.match(s.port, candidates)
	if !ok {
		s.logger.Warn("no matching device", "candidates", candidates)
		return ConnInfo{}, fmt.Errorf("%w: port %d (%d candidates)", ErrPortNotFound, s.port, len(candidates))
	}

	conn, err := s.dialer.Dial(path, s.baud)
	if err != nil {
		s.logger.Error("open failed", "path", path, "error", err)
		return ConnInfo{}, &OpenError{Port: s.port, Path: path, Err: err}
	}

	s.conn = conn
	s.path = path
	s.state = StateConnected
	s.logger = s.logger.With("path", path)
	s.logger.Info("connected", "baud", s.baud)
	return s.Info(), nil
}

// Send queues command and writes it to the device. It does not wait for
// the reply. On a session that is not connected it does nothing.
func (s *Session) Send(command string) {
	if s.state != StateConnected {
		s.logger.Debug("send on disconnected session ignored", "command", command)
		return
	}

	s.pending = append(s.pending, command)
	if err := s.conn.WriteLine(command); err != nil {
		s.logger.Error("write failed", "command", command, "error", err)
		p := s.packet()
		p.CommandText = command
		p.ResultText = err.Error()
		p.Err = fmt.Errorf("port %d: write %q: %w", s.port, command, err)
		s.observers.OnError(p)
		return
	}

	s.logger.Debug("command sent", "command", command, "pending", len(s.pending))
	p := s.packet()
	p.CommandText = command
	s.observers.OnSent(p)
}

// Poll performs one read and classifies what came back.
func (s *Session) Poll() {
	if s.state != StateConnected {
		return
	}

	raw, err := s.conn.ReadAvailable()
	if err != nil {
		if IsTimeout(err) {
			return
		}
		s.logger.Error("read failed", "error", err)
		p := s.packet()
		p.ResultText = err.Error()
		p.Err = fmt.Errorf("port %d: read: %w", s.port, err)
		s.observers.OnError(p)
		return
	}

	text := strings.TrimSpace(raw)
	if text == "" || text == s.prompt {
		return
	}

	if len(s.pending) == 0 {
		// Output nobody asked for, e.g. a boot banner
		result := strings.TrimSpace(strings.ReplaceAll(text, s.prompt, ""))
		if result == "" {
			return
		}
		s.logger.Debug("unsolicited output", "text", result)
		p := s.packet()
		p.ResultText = result
		s.observers.OnResult(p)
		return
	}

	command := s.pending[0]
	s.pending = s.pending[1:]

	if !strings.Contains(text, command) {
		s.logger.Error("desync", "expected", command, "got", text, "pending", len(s.pending))
		p := s.packet()
		p.CommandText = command
		p.ResultText = DesyncMessage
		p.Err = &DesyncError{Port: s.port, Expected: command, Got: text}
		s.observers.OnError(p)
		return
	}

	result := strings.Replace(text, command, "", 1)
	result = strings.TrimSpace(strings.ReplaceAll(result, s.prompt, ""))

	s.logger.Debug("result", "command", command, "result", result)
	p := s.packet()
	p.CommandText = command
	p.ResultText = result
	p.HasExecuted = true
	s.observers.OnResult(p)
}

// Resync drops every pending command and returns how many were dropped.
func (s *Session) Resync() int {
	dropped := len(s.pending)
	s.pending = nil
	return dropped
}

// Close closes the connection. The session cannot be reopened.
func (s *Session) Close() error {
	if s.state != StateConnected {
		return fmt.Errorf("port %d: %w", s.port, ErrNotConnected)
	}

	err := s.conn.Close()
	s.conn = nil
	s.state = StateClosed
	s.logger.Info("closed")
	if err != nil {
		return fmt.Errorf("port %d: close: %w", s.port, err)
	}
	return nil
}
