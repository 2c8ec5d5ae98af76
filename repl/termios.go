package repl

import (
	"log/slog"
	"time"

	"github.com/allbin/serialrepl"
)

// TermiosDialer opens devices with the Linux termios transport. Timeout
// bounds both reads and writes.
type TermiosDialer struct {
	Timeout time.Duration
	Logger  *slog.Logger

	list func() ([]string, error)
	open func(device string, opts ...serial.Option) (serial.Port, error)
}

// NewTermiosDialer returns a dialer over serial.ListPorts and serial.Open.
func NewTermiosDialer(logger *slog.Logger) *TermiosDialer {
	return &TermiosDialer{
		Timeout: DefaultTimeout,
		Logger:  logger,
		list:    serial.ListPorts,
		open:    serial.Open,
	}
}

// Ports lists /dev serial devices in sorted order.
func (d *TermiosDialer) Ports() ([]string, error) {
	return d.list()
}

// Dial opens path as 8N1 with no flow control and RTS/DTR asserted.
func (d *TermiosDialer) Dial(path string, baud int) (Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p, err := d.open(path,
		serial.WithBaudRate(baud),
		serial.WithDataBits(8),
		serial.WithStopBits(1),
		serial.WithParity(serial.ParityNone),
		serial.WithReadTimeout(timeout.Round(100*time.Millisecond)),
		serial.WithWriteTimeout(timeout),
		serial.WithInitialRTS(true),
		serial.WithInitialDTR(true),
	)
	if err != nil {
		return nil, err
	}

	if d.Logger != nil {
		if signals, err := p.GetModemSignals(); err == nil {
			d.Logger.Debug("modem lines", "path", path, "rts", signals.RTS, "dtr", signals.DTR, "dsr", signals.DSR)
		}
	}
	return newLineConn(p), nil
}
