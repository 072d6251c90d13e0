package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Subsystem: "ws",
		Name:      "connected_clients",
		Help:      "Number of open socket connections.",
	})

	relayedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "ws",
		Name:      "relayed_events_total",
		Help:      "Inbound events relayed to at least one recipient set.",
	}, []string{"event"})

	droppedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "ws",
		Name:      "dropped_events_total",
		Help:      "Events that were not relayed, by reason.",
	}, []string{"event", "reason"})
)

func init() {
	prometheus.MustRegister(connectedClients)
	prometheus.MustRegister(relayedEvents)
	prometheus.MustRegister(droppedEvents)
}
