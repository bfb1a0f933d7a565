package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a dispatch run did. Each run owns its registry so
// repeated runs in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	replicas      *prometheus.CounterVec
	resumed       prometheus.Counter
	events        prometheus.Counter
	clamped       prometheus.Counter
	packets       prometheus.Counter
	elements      prometheus.Counter
	simulatedTime prometheus.Histogram
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		replicas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lattice_sim_replicas_total",
			Help: "Replicas finished, by termination reason.",
		}, []string{"reason"}),
		resumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lattice_sim_replicas_resumed_total",
			Help: "Replicas resumed from a stored cutoff.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lattice_sim_events_total",
			Help: "Events fired across all replicas in this run.",
		}),
		clamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lattice_sim_clamped_propensities_total",
			Help: "Propensity evaluations clamped to zero.",
		}),
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lattice_sim_history_packets_total",
			Help: "History packets written to the trajectory sink.",
		}),
		elements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lattice_sim_history_elements_total",
			Help: "Trajectory elements written to the trajectory sink.",
		}),
		simulatedTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lattice_sim_replica_final_time",
			Help:    "Simulated time reached by each replica.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 13),
		}),
	}
	m.registry.MustRegister(m.replicas, m.resumed, m.events, m.clamped, m.packets, m.elements, m.simulatedTime)
	return m
}

// Registry exposes the collectors, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
