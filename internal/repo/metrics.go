package repo

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "briefcase"

// metrics are the repository counters. Handles opened against the same
// Registerer share collectors.
type metrics struct {
	opens       *prometheus.CounterVec
	allocations prometheus.Counter
	changesets  *prometheus.CounterVec
	ops         *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &metrics{
		opens: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "opens_total",
			Help:      "Open attempts by compatibility status.",
		}, []string{"status"})),
		allocations: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "id_allocations_total",
			Help:      "Entity ids handed out by the allocator.",
		})),
		changesets: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "changesets_total",
			Help:      "Changeset batches applied by result.",
		}, []string{"result"})),
		ops: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "local_ops_total",
			Help:      "Local row operations by table and kind.",
		}, []string{"table", "kind"})),
	}
}

// register returns the collector already registered under the same
// descriptor, if any.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
