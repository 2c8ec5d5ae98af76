package serial

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port represents a serial port connection interface
type Port interface {
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Drain() error
	FlushInput() error

	// Modem signal control and monitoring
	GetModemSignals() (ModemSignals, error)
	SetRTS(state bool) error
	SetDTR(state bool) error
}

// port is the concrete implementation of the Port interface
type port struct {
	mu     sync.RWMutex
	fd     int
	config Config
	closed bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// baudRates maps supported line speeds to termios constants
var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	if b, ok := baudRates[rate]; ok {
		return b, nil
	}
	return 0, ErrInvalidBaudRate
}

// getModemStatus retrieves modem control signals using unix package
func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// decodeModemStatus converts TIOCM bits to ModemSignals
func decodeModemStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// setModemLine raises or drops a single TIOCM output line
func setModemLine(fd int, line int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCMBIS, line)
	}
	return unix.IoctlSetInt(fd, unix.TIOCMBIC, line)
}

// classifyOpenError maps errno values from open(2) onto package errors
func classifyOpenError(device string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
	default:
		return fmt.Errorf("failed to open %s: %w", device, err)
	}
}

// lineUnsupported reports errors from drivers without modem lines (ptys,
// some USB CDC bridges)
func lineUnsupported(err error) bool {
	return errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL)
}

// Open opens a serial port with the given device path and options.
// The descriptor is non-blocking; Read and Write wait in poll(2) for at most
// the configured timeouts.
func Open(device string, opts ...Option) (Port, error) {
	// Apply default configuration
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	return openConfig(device, config)
}

func openConfig(device string, config Config) (*port, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, classifyOpenError(device, err)
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if config.InitialRTS != nil {
		err := setModemLine(fd, unix.TIOCM_RTS, *config.InitialRTS)
		if err != nil && !lineUnsupported(err) {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if config.InitialDTR != nil {
		err := setModemLine(fd, unix.TIOCM_DTR, *config.InitialDTR)
		if err != nil && !lineUnsupported(err) {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}

	return &port{
		fd:     fd,
		config: config,
	}, nil
}

// configurePort puts the line into raw mode with the configured framing
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode, no software or hardware flow control
	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// Read waits in poll(2); VMIN=0 and VTIME only matter if the
	// descriptor is ever switched back to blocking
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = config.readTimeoutTenths()

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// Close discards unsent output and closes the serial port. Reads and writes
// hold the lock for at most their timeouts, so Close never waits longer.
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	// A stalled device would otherwise hold close(2) in the driver's drain
	_ = unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCOFLUSH)
	err := unix.Close(p.fd)
	p.closed = true
	return err
}

// waitFd polls fd for events until timeout, retrying on EINTR.
// It reports false when the timeout passed first.
func waitFd(fd int, events int16, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
}

// Read reads whatever the driver has buffered. When nothing arrives within
// the configured read timeout it returns ErrReadTimeout.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	ready, err := waitFd(p.fd, unix.POLLIN, p.config.ReadTimeout)
	if err != nil {
		return 0, err
	}
	if !ready {
		return 0, ErrReadTimeout
	}

	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, ErrReadTimeout
		}
		return 0, err
	}
	if n == 0 && len(buf) > 0 {
		return 0, ErrReadTimeout
	}
	return n, nil
}

// Write writes data to the serial port. If the driver stops accepting bytes
// for longer than the write timeout it returns the count written so far and
// ErrWriteTimeout.
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	deadline := time.Now().Add(p.config.WriteTimeout)
	written := 0
	for written < len(data) {
		n, err := unix.Write(p.fd, data[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil && n > 0, errors.Is(err, unix.EINTR):
			continue
		case !errors.Is(err, unix.EAGAIN):
			return written, err
		}

		ready, err := waitFd(p.fd, unix.POLLOUT, time.Until(deadline))
		if err != nil {
			return written, err
		}
		if !ready {
			return written, ErrWriteTimeout
		}
	}
	return written, nil
}

// GetModemSignals returns current state of all modem control signals
func (p *port) GetModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ModemSignals{}, ErrPortClosed
	}

	status, err := getModemStatus(p.fd)
	if err != nil {
		return ModemSignals{}, err
	}
	return decodeModemStatus(status), nil
}

// SetRTS manually sets the RTS signal state
func (p *port) SetRTS(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return setModemLine(p.fd, unix.TIOCM_RTS, state)
}

// SetDTR manually sets the DTR signal state
func (p *port) SetDTR(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return setModemLine(p.fd, unix.TIOCM_DTR, state)
}

// drainPoll is how often Drain checks the output queue
const drainPoll = 10 * time.Millisecond

// Drain waits until all output written to the port has been transmitted, or
// returns ErrWriteTimeout once the write timeout passes with bytes still queued.
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	deadline := time.Now().Add(p.config.WriteTimeout)
	for {
		queued, err := unix.IoctlGetInt(p.fd, unix.TIOCOUTQ)
		if err != nil {
			return err
		}
		if queued == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrWriteTimeout
		}
		time.Sleep(drainPoll)
	}
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}
