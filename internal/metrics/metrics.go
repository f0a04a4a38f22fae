package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	AnalysisRuns      prometheus.Counter
	PatternsDetected  prometheus.Counter
	PatternsSuggested prometheus.Counter

	StagedCreated    prometheus.Counter
	StagedRescued    prometheus.Counter
	SweepExecuted    prometheus.Counter
	SweepExpired     prometheus.Counter
	SweepRateLimited prometheus.Counter
	SweepFailures    prometheus.Counter
	SweepDuration    prometheus.Histogram
	PendingStaged    prometheus.Gauge

	UndoComplete prometheus.Counter
	UndoPartial  prometheus.Counter
	UndoFailed   prometheus.Counter
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		AnalysisRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_analysis_runs",
			Help: "Total number of mailbox analysis runs",
		}),
		PatternsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_patterns_detected",
			Help: "Total number of new patterns persisted",
		}),
		PatternsSuggested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_patterns_suggested",
			Help: "Total number of patterns that passed the suggestion gate",
		}),
		StagedCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_staged_created",
			Help: "Total number of actions parked behind the grace period",
		}),
		StagedRescued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_staged_rescued",
			Help: "Total number of staged actions rescued before execution",
		}),
		SweepExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_sweep_executed",
			Help: "Total number of staged actions executed by the sweep",
		}),
		SweepExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_sweep_expired",
			Help: "Total number of staged actions whose message was already gone",
		}),
		SweepRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_sweep_rate_limited",
			Help: "Total number of sweep items deferred by upstream rate limiting",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_sweep_failures",
			Help: "Total number of sweep items left staged after an upstream failure",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_autopilot_sweep_duration_seconds",
			Help:    "Time spent per staged-action sweep",
			Buckets: prometheus.DefBuckets,
		}),
		PendingStaged: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_autopilot_pending_staged",
			Help: "Number of staged actions still inside the grace period",
		}),
		UndoComplete: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_undo_complete",
			Help: "Total number of fully reversed audit entries",
		}),
		UndoPartial: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_undo_partial",
			Help: "Total number of partially reversed audit entries",
		}),
		UndoFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inbox_autopilot_undo_failed",
			Help: "Total number of best-effort undos where the message was gone",
		}),
	}
}
