package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: a nil *Metrics records nothing, which keeps tests and
// library callers free of registry setup.
type Metrics struct {
	reg *prometheus.Registry

	Inbound   *prometheus.CounterVec
	Outbound  *prometheus.CounterVec
	Rejected  *prometheus.CounterVec
	Timeouts  prometheus.Counter
	Connects  prometheus.Counter
	Mounted   prometheus.Gauge
	EmitFails *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Inbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_inbound_messages_total",
				Help: "Server messages consumed, by event name",
			},
			[]string{"event"},
		),
		Outbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_outbound_messages_total",
				Help: "Messages emitted to the server, by event name",
			},
			[]string{"event"},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_rejected_commands_total",
				Help: "Local player commands rejected without contacting the server",
			},
			[]string{"reason"},
		),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "battle_timeouts_submitted_total",
			Help: "No-answer submissions made by the round timer",
		}),
		Connects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "battle_connects_total",
			Help: "Successful socket connections, including reconnects",
		}),
		Mounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battle_mounted_screens",
			Help: "Battle screens currently mounted",
		}),
		EmitFails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_emit_failures_total",
				Help: "Outbound messages that could not be written",
			},
			[]string{"event"},
		),
	}
	m.reg.MustRegister(m.Inbound, m.Outbound, m.Rejected, m.Timeouts, m.Connects, m.Mounted, m.EmitFails)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) InboundMsg(event string) {
	if m != nil {
		m.Inbound.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) OutboundMsg(event string) {
	if m != nil {
		m.Outbound.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) EmitFailed(event string) {
	if m != nil {
		m.EmitFails.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) RejectedCmd(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) TimeoutSubmitted() {
	if m != nil {
		m.Timeouts.Inc()
	}
}

func (m *Metrics) Connected() {
	if m != nil {
		m.Connects.Inc()
	}
}

func (m *Metrics) ScreenMounted() {
	if m != nil {
		m.Mounted.Inc()
	}
}

func (m *Metrics) ScreenUnmounted() {
	if m != nil {
		m.Mounted.Dec()
	}
}
