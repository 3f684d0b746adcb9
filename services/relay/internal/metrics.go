package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the relay's Prometheus collectors.
type Metrics struct {
	QueueDepth     prometheus.Gauge
	Connections    prometheus.Gauge
	Generations    *prometheus.CounterVec
	Latency        *prometheus.HistogramVec
	DroppedReplies prometheus.Counter
	Malformed      prometheus.Counter
	Rejected       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_queue_depth",
			Help: "Requests waiting for the worker.",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections",
			Help: "Open websocket connections.",
		}),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_generations_total",
				Help: "Processed requests by model and status.",
			},
			[]string{"model", "status"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_generation_duration_seconds",
				Help:    "Time from dequeue to reply, per model.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"model"},
		),
		DroppedReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_dropped_replies_total",
			Help: "Replies discarded because the connection had closed.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_malformed_messages_total",
			Help: "Inbound messages that could not be decoded.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_rejected_requests_total",
			Help: "Requests refused because the queue was full.",
		}),
	}
	reg.MustRegister(
		m.QueueDepth,
		m.Connections,
		m.Generations,
		m.Latency,
		m.DroppedReplies,
		m.Malformed,
		m.Rejected,
	)
	return m
}
