// Package metrics holds the Prometheus instrumentation for commit and
// resolve operations, following the promauto registration idiom used
// elsewhere in the example corpus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and histograms the Anchor and Resolver report
// to.
type Metrics struct {
	CommitTotal    *prometheus.CounterVec
	CommitDuration prometheus.Histogram

	ResolveTotal    *prometheus.CounterVec
	ResolveDuration prometheus.Histogram

	StagedDIDs prometheus.Gauge
}

// New creates and registers the metrics.
func New() *Metrics {
	return &Metrics{
		CommitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "didanchor_commit_total",
				Help: "Total number of commit_changes invocations by outcome",
			},
			[]string{"outcome"}, // outcome: success, storage_error, ledger_error, error
		),
		CommitDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "didanchor_commit_duration_seconds",
				Help:    "Duration of commit_changes",
				Buckets: prometheus.DefBuckets,
			},
		),
		ResolveTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "didanchor_resolve_total",
				Help: "Total number of resolve invocations by outcome",
			},
			[]string{"outcome"}, // outcome: found, not_found, invalid_proof, error
		),
		ResolveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "didanchor_resolve_duration_seconds",
				Help:    "Duration of resolve",
				Buckets: prometheus.DefBuckets,
			},
		),
		StagedDIDs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "didanchor_staged_dids",
				Help: "Number of DIDs with uncommitted staged updates",
			},
		),
	}
}

// ObserveCommit records a commit outcome and its duration in seconds.
func (m *Metrics) ObserveCommit(outcome string, seconds float64) {
	m.CommitTotal.WithLabelValues(outcome).Inc()
	m.CommitDuration.Observe(seconds)
}

// ObserveResolve records a resolve outcome and its duration in seconds.
func (m *Metrics) ObserveResolve(outcome string, seconds float64) {
	m.ResolveTotal.WithLabelValues(outcome).Inc()
	m.ResolveDuration.Observe(seconds)
}
