package repl

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Manager owns the sessions of a process, keyed by logical port, and
// re-exposes their notifications to subscribers. All methods are safe for
// concurrent use. Observers are called with the manager lock held and must
// not call back into the Manager.
type Manager struct {
	mu       sync.Mutex
	sessions map[int]*Session
	opts     options
	subs     observers
	logger   *slog.Logger
	metrics  *Metrics
}

// NewManager creates an empty manager. Options are applied to every
// session it opens.
func NewManager(opts ...Option) *Manager {
	o := buildOptions(opts)
	m := &Manager{
		sessions: make(map[int]*Session),
		subs:     o.observers,
		logger:   o.logger,
		metrics:  o.metrics,
	}
	o.observers = nil
	m.opts = o
	return m
}

// Subscribe adds an observer for every session's notifications.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, o)
}

// relay is subscribed to each session and forwards to the manager's
// subscribers. It runs with m.mu held.
type relay struct{ m *Manager }

func (r relay) OnError(p Packet) {
	r.m.metrics.failure(p)
	r.m.subs.OnError(p)
}

func (r relay) OnSent(p Packet) {
	r.m.metrics.sent(p)
	r.m.subs.OnSent(p)
}

func (r relay) OnResult(p Packet) {
	r.m.metrics.result(p)
	r.m.subs.OnResult(p)
}

// Open discovers and opens the device for port and registers the session.
// A port that is already registered is left untouched.
func (m *Manager) Open(port, baud int) (ConnInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[port]; ok {
		err := fmt.Errorf("%w: port %d", ErrDuplicatePort, port)
		m.logger.Warn("port already open", "port", port)
		relay{m}.OnError(Packet{Port: port, BaudRate: baud, ResultText: err.Error(), Err: err})
		return ConnInfo{}, err
	}

	s := newSession(port, baud, m.opts)
	s.Subscribe(relay{m})

	info, err := s.Open()
	if err != nil {
		relay{m}.OnError(Packet{
			Port:       port,
			BaudRate:   baud,
			ResultText: fmt.Sprintf("Failed to connect to port %d", port),
			Err:        err,
		})
		return ConnInfo{}, err
	}

	m.sessions[port] = s
	m.metrics.setConnected(len(m.sessions))
	return info, nil
}

// Send queues command on port. Unknown or disconnected ports are logged
// and ignored.
func (m *Manager) Send(port int, command string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[port]
	if !ok || s == nil {
		m.logger.Warn("send to unregistered port", "port", port, "command", command)
		return
	}
	if s.State() != StateConnected {
		m.logger.Warn("send to disconnected port", "port", port, "state", s.State(), "command", command)
		return
	}
	s.Send(command)
}

// PollAll polls every connected session once, in ascending port order.
// Sessions that are not connected are skipped.
func (m *Manager) PollAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer m.metrics.observePoll(time.Now())

	for _, port := range m.portsLocked() {
		s := m.sessions[port]
		if s == nil || s.State() != StateConnected {
			m.logger.Warn("skipping session", "port", port)
			continue
		}
		s.Poll()
	}
}

// Teardown closes every session and empties the manager. Close failures
// are joined into the returned error.
func (m *Manager) Teardown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, port := range m.portsLocked() {
		s := m.sessions[port]
		if s == nil || s.State() != StateConnected {
			continue
		}
		if err := s.Close(); err != nil {
			m.logger.Error("close failed", "port", port, "error", err)
			errs = append(errs, err)
		}
	}
	clear(m.sessions)
	m.metrics.setConnected(0)
	return errors.Join(errs...)
}

// Reset forgets every session without closing it.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.sessions)
	m.metrics.setConnected(0)
}

// Resync discards the commands still awaiting an echo on port and returns
// how many were dropped. Use it after a desync to realign the queue.
func (m *Manager) Resync(port int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[port]
	if !ok || s == nil {
		return 0, fmt.Errorf("%w: port %d", ErrUnknownPort, port)
	}
	if s.State() != StateConnected {
		return 0, fmt.Errorf("port %d: %w", port, ErrNotConnected)
	}
	n := s.Resync()
	m.logger.Info("resynced", "port", port, "dropped", n)
	return n, nil
}

// Ports returns the registered ports in ascending order.
func (m *Manager) Ports() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portsLocked()
}

func (m *Manager) portsLocked() []int {
	ports := make([]int, 0, len(m.sessions))
	for port := range m.sessions {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// Pending returns the commands awaiting an echo on port.
func (m *Manager) Pending(port int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.sessions[port]; s != nil {
		return s.Pending()
	}
	return nil
}

// Connected reports whether port is registered and connected.
func (m *Manager) Connected(port int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[port]
	return s != nil && s.State() == StateConnected
}

// Info returns the connection metadata of a registered port.
func (m *Manager) Info(port int) (ConnInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.sessions[port]
	if s == nil {
		return ConnInfo{}, false
	}
	return s.Info(), true
}
