package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/allbin/serialrepl"
	"github.com/allbin/serialrepl/internal/config"
	"github.com/allbin/serialrepl/repl"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptConn answers each command with reply(command).
type scriptConn struct {
	reply   func(command string) string
	pending []string
}

func (c *scriptConn) WriteLine(line string) error {
	if c.reply != nil {
		c.pending = append(c.pending, c.reply(line))
	}
	return nil
}

func (c *scriptConn) ReadAvailable() (string, error) {
	if len(c.pending) == 0 {
		return "", nil
	}
	r := c.pending[0]
	c.pending = c.pending[1:]
	return r, nil
}

func (c *scriptConn) Close() error { return nil }

func echo(command string) string {
	return command + "\r\nok\r\n>>> "
}

type scriptDialer struct {
	paths  []string
	banner string
	reply  func(string) string
	err    error
}

func (d scriptDialer) Ports() ([]string, error) { return d.paths, nil }

func (d scriptDialer) Dial(path string, baud int) (repl.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	c := &scriptConn{reply: d.reply}
	if d.banner != "" {
		c.pending = append(c.pending, d.banner)
	}
	return c, nil
}

func newTestManager(d repl.Dialer, obs ...repl.Observer) *repl.Manager {
	opts := []repl.Option{repl.WithDialer(d)}
	for _, o := range obs {
		opts = append(opts, repl.WithObserver(o))
	}
	return repl.NewManager(opts...)
}

func TestParsePort(t *testing.T) {
	port, err := parsePort(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, port)

	for _, bad := range []string{"", "COM3", "-1", "1.5"} {
		_, err := parsePort(bad)
		assert.Error(t, err, bad)
	}
}

func TestCommandsReturnErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		args []string
	}{
		{"send", sendCmd, []string{"COM3", "1+1"}},
		{"info", infoCmd, []string{"x"}},
		{"console", consoleCmd, []string{"-2"}},
		{"reset", resetCmd, []string{"three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.cmd.RunE)
			err := tt.cmd.RunE(tt.cmd, tt.args)
			assert.ErrorContains(t, err, "invalid port")
		})
	}
}

func TestResetRejectsActiveState(t *testing.T) {
	require.NoError(t, resetCmd.Flags().Set("active", "sideways"))
	t.Cleanup(func() { resetCmd.Flags().Set("active", "high") })

	err := resetCmd.RunE(resetCmd, []string{"3"})
	assert.ErrorContains(t, err, "invalid state")
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, errors.New("port 3: device busy"))
	assert.Contains(t, buf.String(), "✗")
	assert.Contains(t, buf.String(), "port 3: device busy")
}

func TestBaudOrDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 9600, baudOrDefault(9600, cfg))
	assert.Equal(t, cfg.Transport.BaudRate, baudOrDefault(0, cfg))
}

func TestNewDialer(t *testing.T) {
	d, err := newDialer(config.TransportConfig{Backend: "termios", ReadTimeout: time.Second}, nil)
	require.NoError(t, err)
	termios, ok := d.(*repl.TermiosDialer)
	require.True(t, ok, "got %T", d)
	assert.Equal(t, time.Second, termios.Timeout)

	d, err = newDialer(config.TransportConfig{Backend: "BUGST"}, nil)
	require.NoError(t, err)
	bugst, ok := d.(*repl.BugstDialer)
	require.True(t, ok, "got %T", d)
	assert.Equal(t, repl.DefaultTimeout, bugst.Timeout)

	_, err = newDialer(config.TransportConfig{Backend: "usb"}, nil)
	assert.Error(t, err)
}

func TestMatchPath(t *testing.T) {
	candidates := []string{"/dev/ttyUSB10", "/dev/ttyUSB1"}

	path, err := matchPath("substring", 1, candidates)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB10", path)

	path, err = matchPath("suffix", 1, candidates)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", path)

	_, err = matchPath("suffix", 7, candidates)
	assert.ErrorIs(t, err, repl.ErrPortNotFound)

	_, err = matchPath("regex", 1, candidates)
	assert.Error(t, err)
}

func TestParseSignalState(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"high", true, false},
		{"ON", true, false},
		{"1", true, false},
		{"low", false, false},
		{"false", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		got, err := parseSignalState(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

type lineRecorder struct {
	calls []string
	err   error
}

func (l *lineRecorder) SetRTS(state bool) error {
	l.calls = append(l.calls, "rts="+formatSignalState(state))
	return l.err
}

func (l *lineRecorder) SetDTR(state bool) error {
	l.calls = append(l.calls, "dtr="+formatSignalState(state))
	return l.err
}

func TestPulseReset(t *testing.T) {
	var slept time.Duration
	sleep := func(d time.Duration) { slept = d }

	l := &lineRecorder{}
	require.NoError(t, pulseReset(l, "RTS", true, 50*time.Millisecond, sleep))
	assert.Equal(t, []string{"rts=HIGH", "rts=LOW"}, l.calls)
	assert.Equal(t, 50*time.Millisecond, slept)

	l = &lineRecorder{}
	require.NoError(t, pulseReset(l, "dtr", false, 0, sleep))
	assert.Equal(t, []string{"dtr=LOW", "dtr=HIGH"}, l.calls)

	l = &lineRecorder{err: errors.New("ioctl")}
	err := pulseReset(l, "rts", true, 0, sleep)
	assert.ErrorContains(t, err, "asserting rts")
	assert.Len(t, l.calls, 1)

	assert.Error(t, pulseReset(&lineRecorder{}, "cts", true, 0, sleep))
}

type drainBuffer struct {
	bytes.Buffer
	drained bool
	err     error
}

func (d *drainBuffer) Drain() error {
	d.drained = true
	return d.err
}

func TestSoftReset(t *testing.T) {
	var buf drainBuffer
	require.NoError(t, softReset(&buf))
	assert.Equal(t, "\x03\x04", buf.String())
	assert.True(t, buf.drained)

	stalled := drainBuffer{err: serial.ErrWriteTimeout}
	assert.ErrorIs(t, softReset(&stalled), serial.ErrWriteTimeout)
}

func TestGetPortType(t *testing.T) {
	assert.Equal(t, "USB Serial", getPortType("ttyUSB0"))
	assert.Equal(t, "USB CDC/ACM", getPortType("ttyACM1"))
	assert.Equal(t, "Standard Serial", getPortType("ttyS0"))
	assert.Equal(t, "COM Port", getPortType("COM3"))
	assert.Equal(t, "macOS Serial", getPortType("cu.usbmodem1101"))
	assert.Equal(t, "Serial Port", getPortType("rfcomm0"))
}

func TestRenderPorts(t *testing.T) {
	ports := []string{"/dev/ttyUSB0", "/dev/ttyUSB3"}

	simple := renderSimple(ports, "")
	assert.Equal(t, "/dev/ttyUSB0\n/dev/ttyUSB3\n", simple)

	table := renderTable([]portRow{
		{Path: "/dev/ttyUSB0", Type: "USB Serial", Description: "USB Serial Port"},
		{Path: "/dev/ttyUSB3", Type: "USB Serial", Description: "-"},
	}, "/dev/ttyUSB3")
	for _, want := range []string{"Port", "Type", "/dev/ttyUSB0", "/dev/ttyUSB3", "✓"} {
		assert.Contains(t, table, want)
	}
}

func TestPacketPrinter(t *testing.T) {
	var buf bytes.Buffer
	pp := packetPrinter{w: &buf}

	pp.OnSent(repl.Packet{Port: 3, CommandText: "1+1"})
	pp.OnResult(repl.Packet{Port: 3, CommandText: "1+1", ResultText: "2", HasExecuted: true})
	pp.OnResult(repl.Packet{Port: 3, ResultText: "MicroPython v1.22"})
	pp.OnError(repl.Packet{Port: 3, ResultText: repl.DesyncMessage, Err: repl.ErrDesync})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "[3] 1+1")
	assert.Contains(t, lines[1], "1+1 => 2")
	assert.Contains(t, lines[2], "MicroPython v1.22")
	assert.Contains(t, lines[3], "Desync!")
	assert.Contains(t, lines[3], repl.ErrDesync.Error())
}

func TestPacketRecorder(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &packetRecorder{w: &buf, now: func() time.Time { return at }}

	r.OnSent(repl.Packet{Port: 1, CommandText: "x"})
	r.OnResult(repl.Packet{Port: 1, ResultText: "banner"})
	r.OnError(repl.Packet{Port: 1, ResultText: "boom", Err: errors.New("boom")})

	var kinds []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec struct {
			Time   time.Time      `json:"time"`
			Kind   string         `json:"kind"`
			Packet map[string]any `json:"packet"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.True(t, rec.Time.Equal(at))
		kinds = append(kinds, rec.Kind)
		if rec.Kind == "error" {
			assert.Equal(t, "boom", rec.Packet["error"])
		}
	}
	assert.Equal(t, []string{"sent", "unsolicited", "error"}, kinds)
}

func TestExchangeResult(t *testing.T) {
	mgr := newTestManager(scriptDialer{paths: []string{"COM3"}, reply: echo})

	var connected repl.ConnInfo
	x := exchange{
		port:      3,
		baud:      9600,
		interval:  time.Millisecond,
		onConnect: func(info repl.ConnInfo) { connected = info },
	}
	result, err := x.run(context.Background(), mgr, "machine.unique_id()")
	require.NoError(t, err)

	assert.Equal(t, "COM3", connected.PortName)
	assert.True(t, result.HasExecuted)
	assert.Equal(t, "machine.unique_id()", result.CommandText)
	assert.Equal(t, "ok", result.ResultText)
	assert.Empty(t, mgr.Ports(), "manager should be torn down")
}

func TestExchangeShowsBannerFirst(t *testing.T) {
	d := scriptDialer{paths: []string{"/dev/ttyACM0"}, banner: "MicroPython v1.22\r\n>>> ", reply: echo}

	var banners []string
	x := exchange{
		port:          0,
		baud:          115200,
		interval:      time.Millisecond,
		onUnsolicited: func(p repl.Packet) { banners = append(banners, p.ResultText) },
	}
	result, err := x.run(context.Background(), newTestManager(d), "1+1")
	require.NoError(t, err)

	assert.Equal(t, []string{"MicroPython v1.22"}, banners)
	assert.Equal(t, "ok", result.ResultText)
}

func TestExchangeDesync(t *testing.T) {
	d := scriptDialer{paths: []string{"COM1"}, reply: func(string) string { return "ERR: busy\r\n>>> " }}

	x := exchange{port: 1, baud: 9600, interval: time.Millisecond}
	p, err := x.run(context.Background(), newTestManager(d), "reset()")

	require.ErrorIs(t, err, repl.ErrDesync)
	assert.Equal(t, repl.DesyncMessage, p.ResultText)
	assert.Equal(t, "reset()", p.CommandText)
}

func TestExchangeTimeout(t *testing.T) {
	d := scriptDialer{paths: []string{"COM1"}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	x := exchange{port: 1, baud: 9600, interval: time.Millisecond}
	_, err := x.run(ctx, newTestManager(d), "while True: pass")
	assert.ErrorIs(t, err, errNoReply)
}

func TestExchangeOpenFailure(t *testing.T) {
	d := scriptDialer{paths: []string{"COM1"}, err: errors.New("busy")}

	x := exchange{port: 1, baud: 9600, interval: time.Millisecond}
	_, err := x.run(context.Background(), newTestManager(d), "1")
	assert.ErrorIs(t, err, repl.ErrOpen)

	_, err = x.run(context.Background(), newTestManager(scriptDialer{}), "1")
	assert.ErrorIs(t, err, repl.ErrPortNotFound)
}

func TestDemoRun(t *testing.T) {
	var results []repl.Packet
	tally := &errorTally{}
	obs := repl.ObserverFuncs{Result: func(p repl.Packet) { results = append(results, p) }}

	mgr := newTestManager(scriptDialer{paths: []string{"/dev/ttyUSB1", "/dev/ttyUSB2"}, reply: echo}, obs, tally)

	var out bytes.Buffer
	d := demo{
		ports:    []int{1, 2},
		baud:     115200,
		commands: []string{"import machine", "led.toggle()", "machine.unique_id()"},
		interval: time.Millisecond,
		drain:    time.Second,
		out:      &out,
	}
	require.NoError(t, d.run(context.Background(), mgr))

	assert.Zero(t, tally.Count())
	assert.Len(t, results, 6)
	for _, r := range results {
		assert.True(t, r.HasExecuted)
	}
	assert.Contains(t, out.String(), "/dev/ttyUSB1")
	assert.Contains(t, out.String(), "/dev/ttyUSB2")
	assert.Empty(t, mgr.Ports())
}

func TestDemoSkipsPortsThatFailToOpen(t *testing.T) {
	tally := &errorTally{}
	mgr := newTestManager(scriptDialer{paths: []string{"/dev/ttyUSB1"}, reply: echo}, tally)

	d := demo{
		ports:    []int{1, 5},
		commands: []string{"led.off()"},
		interval: time.Millisecond,
		drain:    time.Second,
		out:      &bytes.Buffer{},
	}
	require.NoError(t, d.run(context.Background(), mgr))
	assert.Equal(t, 1, tally.Count(), "port 5 has no device")
}

func TestDemoNoPortsOpen(t *testing.T) {
	mgr := newTestManager(scriptDialer{})
	d := demo{ports: []int{1}, interval: time.Millisecond, out: &bytes.Buffer{}}
	assert.ErrorIs(t, d.run(context.Background(), mgr), repl.ErrOpen)
}

func TestDemoDrainTimeout(t *testing.T) {
	mgr := newTestManager(scriptDialer{paths: []string{"COM1"}})
	d := demo{
		ports:    []int{1},
		commands: []string{"led.on()"},
		interval: time.Millisecond,
		out:      &bytes.Buffer{},
	}
	err := d.run(context.Background(), mgr)
	assert.ErrorContains(t, err, "1 command(s) still awaiting a reply")
}

func TestDemoCancelled(t *testing.T) {
	mgr := newTestManager(scriptDialer{paths: []string{"COM1"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := demo{
		ports:    []int{1},
		commands: []string{"a", "b"},
		interval: time.Hour,
		out:      &bytes.Buffer{},
	}
	assert.NoError(t, d.run(ctx, mgr))
	assert.Empty(t, mgr.Ports())
}
