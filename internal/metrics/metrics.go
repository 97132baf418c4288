package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics. Nothing in the engine's hot path
// touches it; recording happens in the CLI layer around whole runs.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	backtestTrades   prometheus.Histogram

	sweepsTotal       *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
	sweepCombinations *prometheus.CounterVec

	feedBars          *prometheus.CounterVec
	archiveOps        *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	advisorRequests   *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strata_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		backtestTrades: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strata_backtest_trades",
				Help:    "Trades produced per backtest run",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
		),

		sweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_sweeps_total",
				Help: "Total number of optimization sweeps",
			},
			[]string{"status"},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strata_sweep_duration_seconds",
				Help:    "Optimization sweep duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		sweepCombinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_sweep_combinations_total",
				Help: "Parameter combinations by outcome",
			},
			[]string{"outcome"},
		),

		feedBars: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_feed_bars_total",
				Help: "Bars loaded by feed source",
			},
			[]string{"source"},
		),
		archiveOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_archive_operations_total",
				Help: "Archive operations by backend and status",
			},
			[]string{"backend", "operation", "status"},
		),
		notificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_notifications_total",
				Help: "Notifications sent by channel and status",
			},
			[]string{"channel", "status"},
		),
		advisorRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_advisor_requests_total",
				Help: "Advisor LLM requests by provider and status",
			},
			[]string{"provider", "status"},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.backtestTrades)
	reg.MustRegister(r.sweepsTotal)
	reg.MustRegister(r.sweepDuration)
	reg.MustRegister(r.sweepCombinations)
	reg.MustRegister(r.feedBars)
	reg.MustRegister(r.archiveOps)
	reg.MustRegister(r.notificationsSent)
	reg.MustRegister(r.advisorRequests)

	return r
}

// RecordBacktest records a completed backtest run.
func (r *Registry) RecordBacktest(status string, duration float64, trades int) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
	if status == StatusOK {
		r.backtestTrades.Observe(float64(trades))
	}
}

// RecordSweep records a completed optimization sweep.
func (r *Registry) RecordSweep(status string, duration float64, completed, total int) {
	r.sweepsTotal.WithLabelValues(status).Inc()
	r.sweepDuration.Observe(duration)
	r.sweepCombinations.WithLabelValues("completed").Add(float64(completed))
	if missing := total - completed; missing > 0 {
		r.sweepCombinations.WithLabelValues("missing").Add(float64(missing))
	}
}

// RecordFeedBars records bars loaded from a feed source.
func (r *Registry) RecordFeedBars(source string, n int) {
	r.feedBars.WithLabelValues(source).Add(float64(n))
}

// RecordArchiveOp records one archive backend operation.
func (r *Registry) RecordArchiveOp(backend, operation, status string) {
	r.archiveOps.WithLabelValues(backend, operation, status).Inc()
}

// RecordNotification records a notifier delivery attempt.
func (r *Registry) RecordNotification(channel, status string) {
	r.notificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordAdvisorRequest records an advisor LLM call.
func (r *Registry) RecordAdvisorRequest(provider, status string) {
	r.advisorRequests.WithLabelValues(provider, status).Inc()
}

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatusOf maps an error to the status label used across all counters.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
