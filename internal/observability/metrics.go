package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry            *prometheus.Registry
	ConnectionsTotal    prometheus.Counter
	ActiveLoops         prometheus.Gauge
	FeedbackEventsTotal *prometheus.CounterVec
	TransitionsTotal    *prometheus.CounterVec
	TransmitErrorsTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "interview_backend",
			Name:      "ws_connections_total",
			Help:      "Total accepted websocket connections",
		}),
		ActiveLoops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "interview_backend",
			Name:      "active_feedback_loops",
			Help:      "Number of live feedback emission loops",
		}),
		FeedbackEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview_backend",
			Name:      "feedback_events_total",
			Help:      "Total feedback events emitted",
		}, []string{"category", "severity"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "interview_backend",
			Name:      "session_transitions_total",
			Help:      "Total session status transition requests by outcome",
		}, []string{"to", "outcome"}),
		TransmitErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "interview_backend",
			Name:      "ws_transmit_errors_total",
			Help:      "Feedback events dropped because the connection was gone",
		}),
	}
	r.MustRegister(m.ConnectionsTotal, m.ActiveLoops, m.FeedbackEventsTotal, m.TransitionsTotal, m.TransmitErrorsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
