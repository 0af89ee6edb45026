package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhaseRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "phase_progression_run_duration_seconds",
			Help:    "Duration of one phase progression batch run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms 到约 40s
		},
	)

	PhaseProjectsChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phase_progression_projects_checked_total",
			Help: "Projects evaluated by phase progression",
		},
	)

	PhaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phase_progression_transitions_total",
			Help: "Automatic phase transitions",
		},
		[]string{"rule"}, // rule: bootstrap, schedule
	)

	PhaseProjectErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phase_progression_project_errors_total",
			Help: "Per-project failures isolated during phase progression",
		},
		[]string{"error_type"},
	)

	PhaseRunsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phase_progression_runs_skipped_total",
			Help: "Runs skipped because another run held the lock",
		},
	)

	DrawDueDateUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_due_date_updates_total",
			Help: "Draw milestone outcomes during due-date synchronization",
		},
		[]string{"draw", "outcome"}, // outcome: updated, unchanged, no_source, error
	)

	OverdueDraws = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "draw_overdue_signals_total",
			Help: "draw.overdue events published",
		},
	)

	MetricsDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_metrics_degraded_reads_total",
			Help: "Metrics requests served without schedule or invoice data",
		},
		[]string{"input"}, // input: schedule, invoices
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms 到约 10s
		},
		[]string{"routing_key", "queue"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms 到约 12s
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms 到约 4s
		},
		[]string{"method", "path", "status"},
	)
)

func ObservePhaseRun(duration time.Duration, checked int) {
	PhaseRunDuration.Observe(duration.Seconds())
	PhaseProjectsChecked.Add(float64(checked))
}

func IncrementTransition(rule string) {
	PhaseTransitions.WithLabelValues(rule).Inc()
}

func IncrementProjectError(errorType string) {
	PhaseProjectErrors.WithLabelValues(errorType).Inc()
}

func IncrementRunSkipped() {
	PhaseRunsSkipped.Inc()
}

func RecordDrawOutcome(draw, outcome string) {
	DrawDueDateUpdates.WithLabelValues(draw, outcome).Inc()
}

func IncrementOverdueDraw() {
	OverdueDraws.Inc()
}

func IncrementDegradedRead(input string) {
	MetricsDegraded.WithLabelValues(input).Inc()
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func IncrementSlowQuery(duration time.Duration) {
	SlowQueryCount.Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
