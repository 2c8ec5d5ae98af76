package repl

// Observer receives the three notification kinds raised by sessions and
// the manager. Methods are called synchronously from the operation that
// produced the packet.
type Observer interface {
	OnError(Packet)
	OnSent(Packet)
	OnResult(Packet)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Error  func(Packet)
	Sent   func(Packet)
	Result func(Packet)
}

func (o ObserverFuncs) OnError(p Packet) {
	if o.Error != nil {
		o.Error(p)
	}
}

func (o ObserverFuncs) OnSent(p Packet) {
	if o.Sent != nil {
		o.Sent(p)
	}
}

func (o ObserverFuncs) OnResult(p Packet) {
	if o.Result != nil {
		o.Result(p)
	}
}

// ChanObserver delivers packets on three buffered channels. Sends block
// when a buffer is full, so a consumer must keep draining all three.
type ChanObserver struct {
	Errors  chan Packet
	Sent    chan Packet
	Results chan Packet
}

// NewChanObserver creates a ChanObserver with the given buffer size per channel.
func NewChanObserver(buffer int) *ChanObserver {
	return &ChanObserver{
		Errors:  make(chan Packet, buffer),
		Sent:    make(chan Packet, buffer),
		Results: make(chan Packet, buffer),
	}
}

func (c *ChanObserver) OnError(p Packet)  { c.Errors <- p }
func (c *ChanObserver) OnSent(p Packet)   { c.Sent <- p }
func (c *ChanObserver) OnResult(p Packet) { c.Results <- p }

// observers fans a notification out in subscription order.
type observers []Observer

func (obs observers) OnError(p Packet) {
	for _, o := range obs {
		o.OnError(p)
	}
}

func (obs observers) OnSent(p Packet) {
	for _, o := range obs {
		o.OnSent(p)
	}
}

func (obs observers) OnResult(p Packet) {
	for _, o := range obs {
		o.OnResult(p)
	}
}
