// Package metrics provides Prometheus collectors for the peer network
// receive and send paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "valkyrie"

// Metrics holds the collectors shared by the network and dispatch layers.
type Metrics struct {
	// Receive loop
	DatagramsReceived prometheus.Counter
	BytesReceived     prometheus.Counter
	DatagramFailures  prometheus.Counter
	ReceiveErrors     prometheus.Counter

	// Dispatch
	MessagesDispatched *prometheus.CounterVec

	// Send path
	MessagesSent prometheus.Counter
	BytesSent    prometheus.Counter
}

// New creates collectors in namespace and registers them with reg. A nil reg
// leaves them unregistered.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		DatagramsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Total number of datagrams read from the multicast socket",
		}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Total number of bytes read from the multicast socket",
		}),
		DatagramFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagram_failures_total",
			Help:      "Total number of datagrams that could not be decoded or handled",
		}),
		ReceiveErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Total number of failed socket reads on an open socket",
		}),
		MessagesDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dispatched_total",
			Help:      "Total number of decoded messages by message type",
		}, []string{"message_type"}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages written to the group",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Total number of bytes written to the group",
		}),
	}
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
