package repl

import (
	"io"
	"log/slog"
)

// DefaultPrompt is the idle prompt printed by MicroPython-style REPLs.
const DefaultPrompt = ">>>"

type options struct {
	dialer    Dialer
	match     MatchFunc
	prompt    string
	logger    *slog.Logger
	metrics   *Metrics
	observers observers
}

// Option configures a Session or a Manager.
type Option func(*options)

func defaultOptions() options {
	return options{
		match:  SubstringMatch,
		prompt: DefaultPrompt,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialer == nil {
		o.dialer = NewTermiosDialer(o.logger)
	}
	return o
}

// WithDialer sets the device enumeration and transport. Defaults to a
// TermiosDialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithMatcher sets the policy that resolves a logical port to a device path.
func WithMatcher(m MatchFunc) Option {
	return func(o *options) {
		if m != nil {
			o.match = m
		}
	}
}

// WithPrompt overrides the idle prompt marker.
func WithPrompt(prompt string) Option {
	return func(o *options) {
		if prompt != "" {
			o.prompt = prompt
		}
	}
}

// WithLogger sets the structured logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records manager activity into m. Sessions ignore it.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithObserver subscribes obs to notifications.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}
