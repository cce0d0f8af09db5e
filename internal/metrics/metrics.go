// Package metrics exposes Prometheus instrumentation for scans, link checks
// and the job queue.
//
// Every method is safe to call on a nil *Metrics, so components can accept
// an optional collector without guarding each call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "linkscan"

// Link check outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeBroken = "broken"
	OutcomeError  = "error"
)

// Scan results recorded in scans_total.
const (
	ScanCompleted = "completed"
	ScanFailed    = "failed"
	// ScanAborted is a run that ended without a terminal state, e.g. a
	// persistence error or shutdown. The scan stays RUNNING.
	ScanAborted = "aborted"
)

// Job results recorded in queue_jobs_total.
const (
	JobAcked   = "acked"
	JobRetried = "retried"
	JobDead    = "dead"
)

// Metrics holds all collectors.
type Metrics struct {
	ScansTotal          *prometheus.CounterVec
	ScansRunning        prometheus.Gauge
	ScanDurationSeconds prometheus.Histogram

	LinkChecksTotal          *prometheus.CounterVec
	LinkCheckDurationSeconds prometheus.Histogram
	ItemsPersistedTotal      prometheus.Counter

	JobsEnqueuedTotal prometheus.Counter
	JobsTotal         *prometheus.CounterVec
}

// New creates and registers all metrics on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initScanMetrics(factory)
	m.initCheckMetrics(factory)
	m.initQueueMetrics(factory)

	return m
}

func (m *Metrics) initScanMetrics(factory promauto.Factory) {
	m.ScansTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scans_total",
			Help:      "Total number of scan executions by result",
		},
		[]string{"status"},
	)

	m.ScansRunning = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "scans_running",
			Help:      "Number of scans currently executing",
		},
	)

	m.ScanDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of completed scans in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 0.1s to ~27min
		},
	)
}

func (m *Metrics) initCheckMetrics(factory promauto.Factory) {
	m.LinkChecksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "link_checks_total",
			Help:      "Total number of link checks by outcome",
		},
		[]string{"outcome"},
	)

	m.LinkCheckDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "link_check_duration_seconds",
			Help:      "Duration of single link checks in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)

	m.ItemsPersistedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_persisted_total",
			Help:      "Total number of scan items written",
		},
	)
}

func (m *Metrics) initQueueMetrics(factory promauto.Factory) {
	m.JobsEnqueuedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "queue",
			Name:      "jobs_enqueued_total",
			Help:      "Total number of scan jobs enqueued",
		},
	)

	m.JobsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Total number of consumed jobs by result",
		},
		[]string{"result"},
	)
}

// ScanStarted marks a scan as executing.
func (m *Metrics) ScanStarted() {
	if m == nil {
		return
	}
	m.ScansRunning.Inc()
}

// ScanFinished records the end of an execution started with ScanStarted.
// The duration is only observed for completed scans.
func (m *Metrics) ScanFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ScansRunning.Dec()
	m.ScansTotal.WithLabelValues(status).Inc()
	if status == ScanCompleted {
		m.ScanDurationSeconds.Observe(elapsed.Seconds())
	}
}

// LinkChecked records one link check.
func (m *Metrics) LinkChecked(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LinkChecksTotal.WithLabelValues(outcome).Inc()
	m.LinkCheckDurationSeconds.Observe(elapsed.Seconds())
}

// ItemsPersisted records n written scan items.
func (m *Metrics) ItemsPersisted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsPersistedTotal.Add(float64(n))
}

// JobEnqueued records one enqueued job.
func (m *Metrics) JobEnqueued() {
	if m == nil {
		return
	}
	m.JobsEnqueuedTotal.Inc()
}

// JobHandled records how a consumed job was settled.
func (m *Metrics) JobHandled(result string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
