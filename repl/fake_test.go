package repl

import (
	"errors"
	"sync"
)

// fakeConn replays scripted reads and records writes.
type fakeConn struct {
	mu       sync.Mutex
	reads    []fakeRead
	writes   []string
	writeErr error
	closeErr error
	closed   bool
}

type fakeRead struct {
	text string
	err  error
}

func (c *fakeConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, line)
	return nil
}

func (c *fakeConn) ReadAvailable() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reads) == 0 {
		return "", nil
	}
	r := c.reads[0]
	c.reads = c.reads[1:]
	return r.text, r.err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) queue(texts ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range texts {
		c.reads = append(c.reads, fakeRead{text: t})
	}
}

func (c *fakeConn) queueErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = append(c.reads, fakeRead{err: err})
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

// fakeDialer hands out one fakeConn per path.
type fakeDialer struct {
	paths   []string
	listErr error
	dialErr map[string]error
	conns   map[string]*fakeConn
	dialed  []string
}

func newFakeDialer(paths ...string) *fakeDialer {
	return &fakeDialer{
		paths:   paths,
		dialErr: make(map[string]error),
		conns:   make(map[string]*fakeConn),
	}
}

func (d *fakeDialer) Ports() ([]string, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return append([]string(nil), d.paths...), nil
}

func (d *fakeDialer) Dial(path string, baud int) (Conn, error) {
	d.dialed = append(d.dialed, path)
	if err := d.dialErr[path]; err != nil {
		return nil, err
	}
	return d.conn(path), nil
}

// conn returns the connection for path, creating it so reads can be
// scripted before Dial.
func (d *fakeDialer) conn(path string) *fakeConn {
	c, ok := d.conns[path]
	if !ok {
		c = &fakeConn{}
		d.conns[path] = c
	}
	return c
}

// recorder collects notifications in arrival order.
type recorder struct {
	errors  []Packet
	sent    []Packet
	results []Packet
	order   []string
}

func (r *recorder) OnError(p Packet) {
	r.errors = append(r.errors, p)
	r.order = append(r.order, "error")
}

func (r *recorder) OnSent(p Packet) {
	r.sent = append(r.sent, p)
	r.order = append(r.order, "sent")
}

func (r *recorder) OnResult(p Packet) {
	r.results = append(r.results, p)
	r.order = append(r.order, "result")
}

var errBoom = errors.New("boom")
