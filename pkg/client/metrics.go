package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the client's Prometheus collectors.
type metrics struct {
	bytesReceived prometheus.Counter
	bytesSent     prometheus.Counter
	messagesIn    *prometheus.CounterVec
	messagesOut   prometheus.Counter
	reconnects    prometheus.Counter
	entries       prometheus.Gauge
	rpcDuration   prometheus.Histogram
}

// newMetrics registers the client metrics with reg. A nil reg gets a
// private registry so multiple clients never collide on registration;
// pass prometheus.DefaultRegisterer (or your own) to expose them.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &metrics{
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nettable",
			Name:      "bytes_received_total",
			Help:      "Bytes received from the server.",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nettable",
			Name:      "bytes_sent_total",
			Help:      "Bytes sent to the server.",
		}),
		messagesIn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nettable",
			Name:      "messages_received_total",
			Help:      "Messages decoded from the server, by type.",
		}, []string{"type"}),
		messagesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nettable",
			Name:      "messages_sent_total",
			Help:      "Messages written to the server.",
		}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nettable",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts after an unexpected drop.",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nettable",
			Name:      "entries",
			Help:      "Entries currently mirrored in the table.",
		}),
		rpcDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nettable",
			Name:      "rpc_duration_seconds",
			Help:      "Round-trip latency of RPC calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
