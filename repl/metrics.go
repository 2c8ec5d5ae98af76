package repl

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors updated by a Manager. A nil
// *Metrics records nothing.
type Metrics struct {
	commandsSent *prometheus.CounterVec
	results      *prometheus.CounterVec
	errors       *prometheus.CounterVec
	connected    prometheus.Gauge
	pollDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serialrepl",
			Name:      "commands_sent_total",
			Help:      "Commands written to a device.",
		}, []string{"port"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serialrepl",
			Name:      "results_total",
			Help:      "Result notifications by kind (matched or unsolicited).",
		}, []string{"port", "kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "serialrepl",
			Name:      "errors_total",
			Help:      "Error notifications by kind.",
		}, []string{"port", "kind"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "serialrepl",
			Name:      "sessions_connected",
			Help:      "Sessions currently registered with the manager.",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "serialrepl",
			Name:      "poll_duration_seconds",
			Help:      "Time spent in one PollAll pass.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 1.5, 3, 6},
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	m.commandsSent, err = register(reg, m.commandsSent)
	if err != nil {
		return nil, err
	}
	m.results, err = register(reg, m.results)
	if err != nil {
		return nil, err
	}
	m.errors, err = register(reg, m.errors)
	if err != nil {
		return nil, err
	}
	m.connected, err = register(reg, m.connected)
	if err != nil {
		return nil, err
	}
	m.pollDuration, err = register(reg, m.pollDuration)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) sent(p Packet) {
	if m == nil {
		return
	}
	m.commandsSent.WithLabelValues(strconv.Itoa(p.Port)).Inc()
}

func (m *Metrics) result(p Packet) {
	if m == nil {
		return
	}
	kind := "matched"
	if !p.HasExecuted {
		kind = "unsolicited"
	}
	m.results.WithLabelValues(strconv.Itoa(p.Port), kind).Inc()
}

func (m *Metrics) failure(p Packet) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(strconv.Itoa(p.Port), errorKind(p.Err)).Inc()
}

func (m *Metrics) setConnected(n int) {
	if m == nil {
		return
	}
	m.connected.Set(float64(n))
}

func (m *Metrics) observePoll(start time.Time) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(time.Since(start).Seconds())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrDesync):
		return "desync"
	case errors.Is(err, ErrDuplicatePort):
		return "duplicate"
	case errors.Is(err, ErrPortNotFound):
		return "not_found"
	case errors.Is(err, ErrOpen):
		return "open"
	default:
		return "io"
	}
}
