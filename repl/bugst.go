package repl

import (
	"time"

	"github.com/allbin/serialrepl"
	bugst "go.bug.st/serial"
)

// BugstDialer opens devices with go.bug.st/serial. Unlike TermiosDialer it
// works on every platform that library supports, including COMn names.
//
// The library's writes block until the driver takes every byte, so Dial
// wraps the port in a boundedPort: a write that outlives Timeout returns
// serial.ErrWriteTimeout and is left to finish in the background.
type BugstDialer struct {
	Timeout time.Duration

	list func() ([]string, error)
	open func(name string, mode *bugst.Mode) (bugst.Port, error)
}

// NewBugstDialer returns a dialer over bugst.GetPortsList and bugst.Open.
func NewBugstDialer() *BugstDialer {
	return &BugstDialer{
		Timeout: DefaultTimeout,
		list:    bugst.GetPortsList,
		open:    bugst.Open,
	}
}

// Ports lists the devices reported by the operating system.
func (d *BugstDialer) Ports() ([]string, error) {
	return d.list()
}

// Dial opens path as 8N1 with RTS/DTR asserted.
func (d *BugstDialer) Dial(path string, baud int) (Conn, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	mode.InitialStatusBits = &bugst.ModemOutputBits{RTS: true, DTR: true}

	p, err := d.open(path, mode)
	if err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, err
	}
	return newLineConn(&boundedPort{Port: p, timeout: timeout}), nil
}

type writeResult struct {
	n   int
	err error
}

// boundedPort gives a bugst port a write deadline. At most one abandoned
// write is outstanding; until it returns every Write fails fast. Callers
// must not write concurrently.
type boundedPort struct {
	bugst.Port
	timeout time.Duration

	stalled chan writeResult
}

func (p *boundedPort) Write(data []byte) (int, error) {
	if p.stalled != nil {
		select {
		case <-p.stalled:
			p.stalled = nil
		default:
			return 0, serial.ErrWriteTimeout
		}
	}

	// The caller may reuse data once we return
	buf := append([]byte(nil), data...)
	done := make(chan writeResult, 1)
	go func() {
		n, err := p.Port.Write(buf)
		done <- writeResult{n: n, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.n, r.err
	case <-timer.C:
		p.stalled = done
		return 0, serial.ErrWriteTimeout
	}
}
