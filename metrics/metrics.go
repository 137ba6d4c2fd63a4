// Package metrics exposes Prometheus collectors for the ARA client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ara"

// Metrics holds every collector of a single client.
type Metrics struct {
	PacketsSent     *prometheus.CounterVec
	PacketsReceived *prometheus.CounterVec
	PacketsDropped  *prometheus.CounterVec

	FANTsSent          prometheus.Counter
	DiscoveriesStarted prometheus.Counter
	DiscoveryRetries   prometheus.Counter
	DiscoveriesFailed  prometheus.Counter
	RoutesFound        prometheus.Counter

	TrappedPackets       prometheus.Gauge
	UndeliverablePackets prometheus.Counter
	DuplicatesDropped    prometheus.Counter

	RoutingEntries    prometheus.Gauge
	EntriesEvaporated prometheus.Counter
}

// New registers the collectors on the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Wrap reg with prometheus.WrapRegistererWith to tell nodes apart.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PacketsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Packets handed to a network interface, by packet type",
		}, []string{"type"}),
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Packets received from a network interface, by packet type",
		}, []string{"type"}),
		PacketsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Packets dropped by the router, by reason",
		}, []string{"reason"}),

		FANTsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fants_sent_total",
			Help:      "Forward ants originated by this node",
		}),
		DiscoveriesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discoveries_started_total",
			Help:      "Route discoveries started",
		}),
		DiscoveryRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_retries_total",
			Help:      "Route discovery timeouts that re-broadcast a FANT",
		}),
		DiscoveriesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discoveries_failed_total",
			Help:      "Route discoveries abandoned after the last retry",
		}),
		RoutesFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_found_total",
			Help:      "Route discoveries that completed",
		}),

		TrappedPackets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trapped_packets",
			Help:      "Packets waiting for a route discovery",
		}),
		UndeliverablePackets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undeliverable_packets_total",
			Help:      "Packets reported as not deliverable",
		}),
		DuplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Packets dropped because their (source, sequence number) was seen before",
		}),

		RoutingEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routing_entries",
			Help:      "Entries in the pheromone table",
		}),
		EntriesEvaporated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_evaporated_total",
			Help:      "Entries pruned because their pheromone fell below the threshold",
		}),
	}
}

func (m *Metrics) RecordSent(packetType string) {
	m.PacketsSent.WithLabelValues(packetType).Inc()
}

func (m *Metrics) RecordReceived(packetType string) {
	m.PacketsReceived.WithLabelValues(packetType).Inc()
}

func (m *Metrics) RecordDrop(reason string) {
	m.PacketsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordDuplicate() {
	m.DuplicatesDropped.Inc()
	m.PacketsDropped.WithLabelValues("duplicate").Inc()
}

func (m *Metrics) RecordDiscoveryStart() {
	m.DiscoveriesStarted.Inc()
}

func (m *Metrics) RecordFANT() {
	m.FANTsSent.Inc()
}

func (m *Metrics) RecordDiscoveryRetry() {
	m.DiscoveryRetries.Inc()
}

func (m *Metrics) RecordDiscoveryFailure(undeliverable int) {
	m.DiscoveriesFailed.Inc()
	m.UndeliverablePackets.Add(float64(undeliverable))
}

func (m *Metrics) RecordRouteFound() {
	m.RoutesFound.Inc()
}

func (m *Metrics) SetTrapped(count int) {
	m.TrappedPackets.Set(float64(count))
}

func (m *Metrics) SetRoutingEntries(count int) {
	m.RoutingEntries.Set(float64(count))
}

func (m *Metrics) RecordEvaporated(pruned int) {
	m.EntriesEvaporated.Add(float64(pruned))
}
