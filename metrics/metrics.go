// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_open",
		Help: "Currently open WebSocket connections.",
	})

	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_received_total",
		Help: "Inbound chat messages accepted from clients.",
	})

	Deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_total",
		Help: "Messages delivered to individual room members.",
	})

	DeliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_deliveries_dropped_total",
		Help: "Deliveries dropped because the member was gone or backpressured.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
