package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	HeartbeatsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "heartbeats_total",
		Help:      "Heartbeats applied on the home server.",
	})

	MembersExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "members_expired_total",
		Help:      "Members reaped after their lease deadline passed.",
	})

	GossipEntriesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "gossip_entries_received_total",
		Help:      "Member deltas received from peer servers.",
	})

	GossipBatchesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beacon",
		Name:      "gossip_batches_sent_total",
		Help:      "Outbound gossip dispatches by outcome.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		HeartbeatsTotal,
		MembersExpired,
		GossipEntriesReceived,
		GossipBatchesSent,
	)
}

// MetricsHandler exposes the beacon registry, typically mounted at /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
