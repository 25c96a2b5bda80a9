package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects session and fanout counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	sessions         prometheus.Gauge
	requests         *prometheus.CounterVec
	deliveries       prometheus.Counter
	deliveryFailures prometheus.Counter
	publishes        *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linkinbio",
			Subsystem: "updates",
			Name:      "sessions",
			Help:      "Number of negotiated update sessions.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkinbio",
			Subsystem: "updates",
			Name:      "requests_total",
			Help:      "Protocol requests handled, by meta channel and outcome.",
		}, []string{"channel", "outcome"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linkinbio",
			Subsystem: "updates",
			Name:      "deliveries_total",
			Help:      "Update events queued to subscribed sessions.",
		}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "linkinbio",
			Subsystem: "updates",
			Name:      "delivery_failures_total",
			Help:      "Update events that could not be queued to a session.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkinbio",
			Subsystem: "updates",
			Name:      "publishes_total",
			Help:      "Post mutations published, by update name.",
		}, []string{"name"}),
	}

	if reg != nil {
		reg.MustRegister(m.sessions, m.requests, m.deliveries, m.deliveryFailures, m.publishes)
	}
	return m
}

func (m *Metrics) SessionOpened(string) {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionClosed(string) {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) observeRequest(channel, outcome string) {
	if m != nil {
		m.requests.WithLabelValues(channel, outcome).Inc()
	}
}

func (m *Metrics) observeDelivery(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.deliveries.Inc()
	} else {
		m.deliveryFailures.Inc()
	}
}

func (m *Metrics) observePublish(name string) {
	if m != nil {
		m.publishes.WithLabelValues(name).Inc()
	}
}
