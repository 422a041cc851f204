package campaign

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the orchestrator.
type Metrics struct {
	RunsStarted      prometheus.Counter
	Transitions      *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	LookupFailures   *prometheus.CounterVec
	FallbackDrafts   prometheus.Counter
	Decisions        *prometheus.CounterVec
	SnapshotFailures prometheus.Counter
}

// NewMetrics registers the outreach_ metrics once per process and returns
// the shared set.
//
// Metrics:
//   - outreach_runs_started_total
//   - outreach_contact_transitions_total{status}
//   - outreach_stage_duration_seconds{stage}
//   - outreach_lookup_failures_total{source,kind}
//   - outreach_fallback_drafts_total
//   - outreach_review_decisions_total{outcome}
//   - outreach_snapshot_failures_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "outreach_runs_started_total",
				Help: "Total number of campaign runs started",
			}),
			Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "outreach_contact_transitions_total",
				Help: "Contact status transitions by target status",
			}, []string{"status"}),
			StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "outreach_stage_duration_seconds",
				Help:    "Duration of enrich and draft stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			}, []string{"stage"}),
			LookupFailures: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "outreach_lookup_failures_total",
				Help: "Lookup errors by source; kind is unavailable or error",
			}, []string{"source", "kind"}),
			FallbackDrafts: promauto.NewCounter(prometheus.CounterOpts{
				Name: "outreach_fallback_drafts_total",
				Help: "Drafts produced by the template fallback after a generation failure",
			}),
			Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "outreach_review_decisions_total",
				Help: "Review decisions by outcome",
			}, []string{"outcome"}),
			SnapshotFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "outreach_snapshot_failures_total",
				Help: "Snapshot writes that failed",
			}),
		}
	})
	return globalMetrics
}
