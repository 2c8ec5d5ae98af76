package repl

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/serialrepl"
)

const (
	// DefaultTimeout bounds every read and write on a connection.
	DefaultTimeout = 1500 * time.Millisecond

	// LineEnding terminates every command written to a device.
	LineEnding = "\r\n"

	readBufferSize = 4096

	// maxAvailable caps how much one ReadAvailable call collects.
	maxAvailable = 16 * readBufferSize
)

// Conn is a line-oriented text connection to one device.
type Conn interface {
	// WriteLine writes line followed by LineEnding.
	WriteLine(line string) error
	// ReadAvailable returns whatever the device has buffered. A read that
	// times out returns "" and a nil error, or an error for which
	// IsTimeout reports true.
	ReadAvailable() (string, error)
	Close() error
}

// Dialer enumerates and opens devices on the host.
type Dialer interface {
	Ports() ([]string, error)
	Dial(path string, baud int) (Conn, error)
}

// IsTimeout reports whether err means "no data before the deadline".
// Write timeouts are not included; a device that stops accepting output is
// an error.
func IsTimeout(err error) bool {
	return errors.Is(err, serial.ErrReadTimeout) || errors.Is(err, os.ErrDeadlineExceeded) || os.IsTimeout(err)
}

// lineConn adapts a raw byte port to Conn.
type lineConn struct {
	rw  io.ReadWriteCloser
	buf []byte
}

func newLineConn(rw io.ReadWriteCloser) *lineConn {
	return &lineConn{rw: rw, buf: make([]byte, readBufferSize)}
}

func (c *lineConn) WriteLine(line string) error {
	data := []byte(line + LineEnding)
	for len(data) > 0 {
		n, err := c.rw.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		data = data[n:]
	}
	return nil
}

// ReadAvailable keeps reading while the driver returns full buffers, so a
// reply larger than one read is not split across polls. It stops at a short
// read, a timeout or maxAvailable bytes.
func (c *lineConn) ReadAvailable() (string, error) {
	var out []byte
	for len(out) < maxAvailable {
		n, err := c.rw.Read(c.buf)
		if err != nil {
			if len(out) > 0 || IsTimeout(err) {
				// A hard error after data resurfaces on the next read
				break
			}
			return "", err
		}
		out = append(out, c.buf[:n]...)
		if n < len(c.buf) {
			break
		}
	}
	return strings.ToValidUTF8(string(out), "�"), nil
}

func (c *lineConn) Close() error {
	return c.rw.Close()
}
