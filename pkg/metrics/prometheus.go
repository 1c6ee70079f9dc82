// Package metrics provides Prometheus metrics for the cohort assignment service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as the "outcome" label of runs_total.
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeInfeasible = "infeasible"
	OutcomeTimeout    = "timeout"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	solveBuckets     []float64
	registry         prometheus.Registerer

	// Solver
	runsTotal         *prometheus.CounterVec
	solveDuration     prometheus.Histogram
	solverDetached    prometheus.Gauge
	objectiveValue    prometheus.Gauge
	modelVariables    prometheus.Gauge
	modelConstraints  prometheus.Gauge
	participants      *prometheus.GaugeVec
	projects          prometheus.Gauge
	preferenceRankHit *prometheus.CounterVec
	partnerMatches    prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	queueDequeue       prometheus.Counter

	// Workers
	workerCount   prometheus.Gauge
	workerBusy    prometheus.Gauge
	workerErrors  prometheus.Counter
	workerLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cohort",
		subsystem:        "assignment",
		histogramBuckets: prometheus.DefBuckets,
		solveBuckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Assignment runs by terminal outcome",
	}, []string{"outcome"})

	m.solveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solve_duration_seconds",
		Help:      "Wall-clock time spent in the constraint solver",
		Buckets:   m.solveBuckets,
	})

	m.solverDetached = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_detached",
		Help:      "Solver searches still running after their time budget expired",
	})

	m.objectiveValue = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "objective_value",
		Help:      "Objective value of the last solved run",
	})

	m.modelVariables = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_variables",
		Help:      "Boolean variables in the last built model",
	})

	m.modelConstraints = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_constraints",
		Help:      "Linear constraints in the last built model",
	})

	m.participants = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants",
		Help:      "Participants in the last run by role",
	}, []string{"role"})

	m.projects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "projects",
		Help:      "Projects in the last run",
	})

	m.preferenceRankHit = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "preference_hits_total",
		Help:      "Participants placed in one of their ranked project preferences",
	}, []string{"rank"})

	m.partnerMatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partner_matches_total",
		Help:      "Resolved partner preferences honoured by the final assignment",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Runs waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum queue capacity",
	})

	m.queueEnqueue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Runs accepted by the queue",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Runs refused by the queue by reason",
	}, []string{"reason"})

	m.queueDequeue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Runs handed to workers",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Configured run workers",
	})

	m.workerBusy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_busy",
		Help:      "Workers currently executing a run",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Runs that ended in an unexpected error or panic",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_run_duration_seconds",
		Help:      "End-to-end run duration including loading and reporting",
		Buckets:   m.solveBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordRun counts a terminal run outcome.
func RecordRun(outcome string) {
	globalManager.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordSolveDuration observes solver wall-clock time in seconds.
func RecordSolveDuration(seconds float64) {
	globalManager.solveDuration.Observe(seconds)
}

// SolverDetached moves the count of searches running past their budget.
func SolverDetached(delta int) {
	globalManager.solverDetached.Add(float64(delta))
}

// UpdateObjectiveValue sets the objective of the last solved run.
func UpdateObjectiveValue(v int64) {
	globalManager.objectiveValue.Set(float64(v))
}

// UpdateModelSize records the size of the last built model.
func UpdateModelSize(variables, constraints int) {
	globalManager.modelVariables.Set(float64(variables))
	globalManager.modelConstraints.Set(float64(constraints))
}

// UpdateProblemSize records the pool sizes of the last run.
func UpdateProblemSize(managers, engineers, projects int) {
	globalManager.participants.WithLabelValues("manager").Set(float64(managers))
	globalManager.participants.WithLabelValues("engineer").Set(float64(engineers))
	globalManager.projects.Set(float64(projects))
}

// RecordPreferenceHits adds n participants placed in their rank-th preference.
func RecordPreferenceHits(rank string, n int) {
	globalManager.preferenceRankHit.WithLabelValues(rank).Add(float64(n))
}

// RecordPartnerMatches adds honoured partner preferences.
func RecordPartnerMatches(n int) {
	globalManager.partnerMatches.Add(float64(n))
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted run.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueEnqueueError counts a refused run.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordQueueDequeue counts a run handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// WorkerBusy adjusts the busy worker gauge by delta.
func WorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordWorkerError counts an unexpected run failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerRunDuration observes end-to-end run time in seconds.
func RecordWorkerRunDuration(seconds float64) {
	globalManager.workerLatency.Observe(seconds)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP latency in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
