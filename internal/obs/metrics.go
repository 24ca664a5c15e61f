package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobTransitions counts successful lifecycle operations by kind.
	JobTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatedrop",
			Subsystem: "jobs",
			Name:      "transitions_total",
			Help:      "Total successful job lifecycle transitions.",
		},
		[]string{"op"},
	)

	// EventsEmitted counts fan-out broadcasts by event name.
	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatedrop",
			Subsystem: "realtime",
			Name:      "events_emitted_total",
			Help:      "Total realtime events broadcast to rooms or the global feed.",
		},
		[]string{"event"},
	)

	// WSConnections tracks currently connected websocket clients.
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gatedrop",
			Subsystem: "realtime",
			Name:      "ws_connections",
			Help:      "Currently connected websocket clients.",
		},
	)

	// WalletMutations counts ledger operations by kind and result.
	WalletMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatedrop",
			Subsystem: "wallet",
			Name:      "mutations_total",
			Help:      "Total wallet credit/debit attempts.",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(JobTransitions, EventsEmitted, WSConnections, WalletMutations)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
