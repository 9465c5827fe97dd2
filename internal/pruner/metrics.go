package pruner

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pruneRunsTotal      prometheus.Counter
	leasesRevokedTotal  prometheus.Counter
	configsDeletedTotal prometheus.Counter
	pruneFailuresTotal  prometheus.Counter

	// Registration guard
	metricsOnce sync.Once
)

// Metrics records pruning reconciler activity.
type Metrics struct{}

// NewMetrics creates a Metrics instance. The underlying Prometheus
// collectors are registered once per process on first use.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		pruneRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "leasevault_prune_runs_total",
			Help: "Total number of prune passes executed",
		})
		leasesRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "leasevault_leases_revoked_total",
			Help: "Total number of leases revoked during pruning",
		})
		configsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "leasevault_configs_deleted_total",
			Help: "Total number of dynamic secret configs hard-deleted",
		})
		pruneFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "leasevault_prune_failures_total",
			Help: "Total number of prune passes that failed",
		})
	})
	return &Metrics{}
}

// RecordRun counts one prune pass.
func (m *Metrics) RecordRun() {
	if pruneRunsTotal != nil {
		pruneRunsTotal.Inc()
	}
}

// RecordRevocation counts one revoked lease.
func (m *Metrics) RecordRevocation() {
	if leasesRevokedTotal != nil {
		leasesRevokedTotal.Inc()
	}
}

// RecordDeletion counts one hard-deleted config.
func (m *Metrics) RecordDeletion() {
	if configsDeletedTotal != nil {
		configsDeletedTotal.Inc()
	}
}

// RecordFailure counts one failed prune pass.
func (m *Metrics) RecordFailure() {
	if pruneFailuresTotal != nil {
		pruneFailuresTotal.Inc()
	}
}
