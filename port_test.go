package serial

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{123456, true},
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err != ErrInvalidBaudRate {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
		}
		if result == 0 {
			t.Errorf("Got zero result for valid baud rate %d", test.input)
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestOpenRejectsInvalidOption(t *testing.T) {
	_, err := Open("/dev/nonexistent", WithBaudRate(1))
	if err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		errno error
		want  error
	}{
		{unix.ENOENT, ErrDeviceNotFound},
		{unix.ENXIO, ErrDeviceNotFound},
		{unix.EACCES, ErrPermissionDenied},
		{unix.EBUSY, ErrDeviceInUse},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			err := classifyOpenError("/dev/ttyACM0", tt.errno)
			if !errors.Is(err, tt.want) {
				t.Errorf("classifyOpenError(%v) = %v, want %v", tt.errno, err, tt.want)
			}
		})
	}

	err := classifyOpenError("/dev/ttyACM0", unix.EIO)
	if !errors.Is(err, unix.EIO) {
		t.Errorf("Expected wrapped EIO, got %v", err)
	}
	if got := fmt.Sprint(err); got != "failed to open /dev/ttyACM0: "+unix.EIO.Error() {
		t.Errorf("Unexpected message %q", got)
	}
}

func TestDecodeModemStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ModemSignals
	}{
		{"none", 0, ModemSignals{}},
		{"rts dtr", unix.TIOCM_RTS | unix.TIOCM_DTR, ModemSignals{RTS: true, DTR: true}},
		{"inputs", unix.TIOCM_CTS | unix.TIOCM_DSR | unix.TIOCM_RI | unix.TIOCM_CAR,
			ModemSignals{CTS: true, DSR: true, RI: true, DCD: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeModemStatus(tt.status); got != tt.expected {
				t.Errorf("decodeModemStatus(%v) = %+v, want %+v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestClosedPortOperations(t *testing.T) {
	p := &port{fd: -1, closed: true}

	if _, err := p.Read(make([]byte, 1)); err != ErrPortClosed {
		t.Errorf("Read: expected ErrPortClosed, got %v", err)
	}
	if _, err := p.Write([]byte("x")); err != ErrPortClosed {
		t.Errorf("Write: expected ErrPortClosed, got %v", err)
	}
	if err := p.Close(); err != ErrPortClosed {
		t.Errorf("Close: expected ErrPortClosed, got %v", err)
	}
	if _, err := p.GetModemSignals(); err != ErrPortClosed {
		t.Errorf("GetModemSignals: expected ErrPortClosed, got %v", err)
	}
	if err := p.SetRTS(true); err != ErrPortClosed {
		t.Errorf("SetRTS: expected ErrPortClosed, got %v", err)
	}
	if err := p.SetDTR(true); err != ErrPortClosed {
		t.Errorf("SetDTR: expected ErrPortClosed, got %v", err)
	}
	if err := p.FlushInput(); err != ErrPortClosed {
		t.Errorf("FlushInput: expected ErrPortClosed, got %v", err)
	}
}

// openPty returns a pty master and the path of its slave end, skipping the
// test where ptys are unavailable.
func openPty(t *testing.T) (int, string) {
	t.Helper()

	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() { unix.Close(master) })

	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		t.Fatalf("unlockpt: %v", err)
	}
	n, err := unix.IoctlGetUint32(master, unix.TIOCGPTN)
	if err != nil {
		t.Fatalf("ptsname: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func openPtyPort(t *testing.T, slave string, readTimeout, writeTimeout time.Duration) *port {
	t.Helper()

	config := DefaultConfig()
	config.ReadTimeout = readTimeout
	config.WriteTimeout = writeTimeout
	p, err := openConfig(slave, config)
	if err != nil {
		t.Fatalf("open %s: %v", slave, err)
	}
	return p
}

// fillUntilTimeout writes until the unread pty buffer refuses more bytes.
func fillUntilTimeout(t *testing.T, p *port) {
	t.Helper()

	chunk := bytes.Repeat([]byte("x"), 1024)
	for i := 0; i < 4096; i++ {
		if _, err := p.Write(chunk); err != nil {
			if !errors.Is(err, ErrWriteTimeout) {
				t.Fatalf("Expected ErrWriteTimeout, got %v", err)
			}
			return
		}
	}
	t.Fatal("4 MiB written without the peer reading")
}

func TestWriteTimesOutWhenPeerStopsReading(t *testing.T) {
	_, slave := openPty(t)
	p := openPtyPort(t, slave, 100*time.Millisecond, 300*time.Millisecond)

	start := time.Now()
	fillUntilTimeout(t, p)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Write took %v to give up", elapsed)
	}

	start = time.Now()
	if _, err := p.Write([]byte("print(1)\r\n")); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout on a full buffer, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("Write on a full buffer returned after %v, want about 300ms", elapsed)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestCloseDuringStalledWrite(t *testing.T) {
	_, slave := openPty(t)
	p := openPtyPort(t, slave, 100*time.Millisecond, 500*time.Millisecond)
	fillUntilTimeout(t, p)

	writing := make(chan error, 1)
	go func() {
		_, err := p.Write([]byte("x"))
		writing <- err
	}()
	time.Sleep(50 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Close stayed blocked behind a stalled write")
	}

	if err := <-writing; !errors.Is(err, ErrWriteTimeout) && err != ErrPortClosed {
		t.Errorf("Expected the stalled write to time out, got %v", err)
	}
}

func TestReadFromPty(t *testing.T) {
	master, slave := openPty(t)
	p := openPtyPort(t, slave, 200*time.Millisecond, 500*time.Millisecond)
	defer p.Close()

	buf := make([]byte, 64)
	start := time.Now()
	if _, err := p.Read(buf); err != ErrReadTimeout {
		t.Errorf("Expected ErrReadTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Read returned after %v, want about 200ms", elapsed)
	}

	if _, err := unix.Write(master, []byte(">>> ")); err != nil {
		t.Fatalf("write master: %v", err)
	}
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := string(buf[:n]); got != ">>> " {
		t.Errorf("Read = %q, want %q", got, ">>> ")
	}
}
