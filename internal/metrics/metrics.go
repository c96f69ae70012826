// Package metrics exposes prometheus counters for the evaluation path.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlguard_evaluations_total",
		Help: "URL evaluations by verdict source and outcome",
	}, []string{"source", "result"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlguard_verdict_cache_lookups_total",
		Help: "Verdict cache lookups by result",
	}, []string{"result"})

	RemoteAnalyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlguard_remote_analyses_total",
		Help: "Remote reputation analyses by outcome",
	}, []string{"outcome"})

	RemoteThrottles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urlguard_remote_throttled_total",
		Help: "Rate-limit responses received from the reputation authority",
	})

	BlacklistSyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlguard_blacklist_syncs_total",
		Help: "Blacklist synchronization attempts by result",
	}, []string{"result"})

	BlacklistEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "urlguard_blacklist_entries",
		Help: "Domains currently held in the blacklist snapshot",
	})

	registerOnce sync.Once
)

// Register adds every collector to reg. Later calls are no-ops.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			Evaluations,
			CacheLookups,
			RemoteAnalyses,
			RemoteThrottles,
			BlacklistSyncs,
			BlacklistEntries,
		)
	})
}
