// Package metrics provides Prometheus metrics for the proctoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Detection pipeline
	eventsEmitted   *prometheus.CounterVec
	ticks           *prometheus.CounterVec
	recordsSkipped  *prometheus.CounterVec
	detectorLatency *prometheus.HistogramVec
	taskRuns        *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	ticksDuplicate  prometheus.Counter
	mailboxDropped  *prometheus.CounterVec

	// Sessions
	sessionsActive  prometheus.Gauge
	sessionsStarted prometheus.Counter
	sessionsStopped prometheus.Counter
	finalScore      prometheus.Histogram
	archivedReports prometheus.Gauge

	// Dispatch
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerActive       prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter
	sinkPublish        *prometheus.CounterVec
	streamClients      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "proctor",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsEmitted = auto.NewCounterVec(m.counterOpts("events_emitted_total",
		"Suspicious-activity events recorded, by event type"), []string{"type"})
	m.ticks = auto.NewCounterVec(m.counterOpts("ticks_total",
		"Detector ticks by source and outcome"), []string{"source", "outcome"})
	m.recordsSkipped = auto.NewCounterVec(m.counterOpts("records_skipped_total",
		"Malformed detector records dropped at the boundary"), []string{"source"})
	m.detectorLatency = auto.NewHistogramVec(m.histogramOpts("detector_latency_milliseconds",
		"Age of detector results when consumed by a tick", nil), []string{"source"})
	m.taskRuns = auto.NewCounterVec(m.counterOpts("task_runs_total",
		"Scheduler task runs by task and outcome"), []string{"task", "outcome"})
	m.taskDuration = auto.NewHistogramVec(m.histogramOpts("task_duration_milliseconds",
		"Scheduler task run duration", nil), []string{"task"})
	m.ticksDuplicate = auto.NewCounter(m.counterOpts("ticks_duplicate_total",
		"Detector pushes rejected because their tick id was already seen"))
	m.mailboxDropped = auto.NewCounterVec(m.counterOpts("mailbox_dropped_total",
		"Pending detector results evicted from a full mailbox"), []string{"source"})

	m.sessionsActive = auto.NewGauge(m.gaugeOpts("sessions_active", "Sessions currently monitored"))
	m.sessionsStarted = auto.NewCounter(m.counterOpts("sessions_started_total", "Sessions started"))
	m.sessionsStopped = auto.NewCounter(m.counterOpts("sessions_stopped_total", "Sessions stopped"))
	m.finalScore = auto.NewHistogram(m.histogramOpts("session_final_score",
		"Integrity score of stopped sessions", prometheus.LinearBuckets(10, 10, 10)))
	m.archivedReports = auto.NewGauge(m.gaugeOpts("archived_reports", "Reports held in the session archive"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the dispatch queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum dispatch queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Events enqueued for dispatch"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Events dequeued for dispatch"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Events dropped because the dispatch queue was full or closed"))
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Running dispatch workers"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time to deliver one event to every sink", nil))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Events with at least one failed sink"))
	m.sinkPublish = auto.NewCounterVec(m.counterOpts("sink_publish_total",
		"Sink deliveries by sink and outcome"), []string{"sink", "outcome"})
	m.streamClients = auto.NewGauge(m.gaugeOpts("stream_clients", "Connected live stream clients"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration", nil), []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(m.counterOpts("http_errors_total",
		"HTTP error responses by endpoint, type and severity"), []string{"endpoint", "error_type", "severity"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Most recent GC pause", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Detection pipeline.

// RecordEventEmitted counts one recorded event of the given type.
func RecordEventEmitted(eventType string) {
	globalManager.eventsEmitted.WithLabelValues(eventType).Inc()
}

// RecordTick counts a detector tick. Outcomes: processed, no_result, no_signal, error.
func RecordTick(source, outcome string) {
	globalManager.ticks.WithLabelValues(source, outcome).Inc()
}

// RecordRecordsSkipped counts malformed records dropped from one tick.
func RecordRecordsSkipped(source string, n int) {
	if n > 0 {
		globalManager.recordsSkipped.WithLabelValues(source).Add(float64(n))
	}
}

// RecordDetectorLatency records how long a result waited before its tick.
func RecordDetectorLatency(source string, latencyMs float64) {
	globalManager.detectorLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordTaskRun records one scheduler run. Outcomes: ok, error, timeout.
func RecordTaskRun(task, outcome string, latencyMs float64) {
	globalManager.taskRuns.WithLabelValues(task, outcome).Inc()
	globalManager.taskDuration.WithLabelValues(task).Observe(latencyMs)
}

// RecordTickDuplicate counts a rejected duplicate push.
func RecordTickDuplicate() {
	globalManager.ticksDuplicate.Inc()
}

// RecordMailboxDropped counts an evicted pending result.
func RecordMailboxDropped(source string) {
	globalManager.mailboxDropped.WithLabelValues(source).Inc()
}

// Sessions.

// RecordSessionStarted counts a started session.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSessionStopped counts a stopped session and its final score.
func RecordSessionStopped(score int) {
	globalManager.sessionsStopped.Inc()
	globalManager.finalScore.Observe(float64(score))
}

// UpdateSessionsActive sets the number of active sessions.
func UpdateSessionsActive(n int) {
	globalManager.sessionsActive.Set(float64(n))
}

// UpdateArchivedReports sets the archive size.
func UpdateArchivedReports(n int) {
	globalManager.archivedReports.Set(float64(n))
}

// Dispatch.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerProcessingLatency records the delivery time of one event.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts an event with a failed sink.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordSinkPublish counts one sink delivery. Outcomes: ok, error.
func RecordSinkPublish(sink, outcome string) {
	globalManager.sinkPublish.WithLabelValues(sink, outcome).Inc()
}

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(n int) {
	globalManager.streamClients.Set(float64(n))
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts one 4xx/5xx response.
func RecordHTTPError(endpoint, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType, severity).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
