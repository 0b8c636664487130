// Package metrics provides Prometheus metrics for the gincana scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the gincana service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	pipelineRuns       *prometheus.CounterVec
	pipelineDuration   prometheus.Histogram
	validationFailures prometheus.Counter
	formulaResolved    prometheus.Counter
	cellsDefaulted     prometheus.Counter

	// Dataset gauges
	participants prometheus.Gauge
	donations    prometheus.Gauge
	groups       prometheus.Gauge

	// Source and cache metrics
	sourceLoads        *prometheus.CounterVec
	sourceLoadLatency  *prometheus.HistogramVec
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheInvalidations *prometheus.CounterVec
	cacheLastLoadUnix  prometheus.Gauge
	watchEvents        prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	reloadsRejected     prometheus.Counter

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        DefaultNamespace,
		subsystem:        DefaultSubsystem,
		histogramBuckets: DefaultBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.pipelineRuns = m.counterVec("pipeline_runs_total", "Scoring pipeline runs by result", "result")
	m.pipelineDuration = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_duration_milliseconds",
		Help:      "Duration of a full normalize and score pass in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.validationFailures = m.counter("validation_failures_total", "Sources rejected as structurally invalid")
	m.formulaResolved = m.counter("formula_cells_resolved_total", "Textual formula cells resolved to numbers")
	m.cellsDefaulted = m.counter("cells_defaulted_total", "Numeric cells that could not be read and became 0")

	m.participants = m.gauge("participants", "Participants in the last loaded roster")
	m.donations = m.gauge("donations", "Donation records in the last loaded workbook")
	m.groups = m.gauge("groups", "Distinct groups in the last loaded roster")

	m.sourceLoads = m.counterVec("source_loads_total", "Source loads by source and result", "source", "result")
	m.sourceLoadLatency = m.histogramVec("source_load_latency_milliseconds", "Source load latency in milliseconds", "source")
	m.cacheHits = m.counter("cache_hits_total", "Reads served from the source cache")
	m.cacheMisses = m.counter("cache_misses_total", "Reads that had to load the source")
	m.cacheInvalidations = m.counterVec("cache_invalidations_total", "Source cache invalidations by reason", "reason")
	m.cacheLastLoadUnix = m.gauge("cache_last_load_unix", "Unix time of the last successful source load")
	m.watchEvents = m.counter("watch_events_total", "File change events seen for the source workbook")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and error type", "endpoint", "method", "error_type")
	m.reloadsRejected = m.counter("reloads_rejected_total", "Reload requests refused by the rate limiter")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Current number of goroutines")
}

// RecordPipelineRun records one pipeline pass and its duration.
func RecordPipelineRun(result string, durationMs float64) {
	globalManager.pipelineRuns.WithLabelValues(result).Inc()
	globalManager.pipelineDuration.Observe(durationMs)
}

// RecordValidationFailure increments the structural validation failure counter.
func RecordValidationFailure() {
	globalManager.validationFailures.Inc()
}

// RecordFormulaCells adds the formula statistics of a normalization pass.
func RecordFormulaCells(resolved, defaulted int) {
	globalManager.formulaResolved.Add(float64(resolved))
	globalManager.cellsDefaulted.Add(float64(defaulted))
}

// UpdateDatasetSize sets the dataset gauges.
func UpdateDatasetSize(participants, donations, groups int) {
	globalManager.participants.Set(float64(participants))
	globalManager.donations.Set(float64(donations))
	globalManager.groups.Set(float64(groups))
}

// RecordSourceLoad records a source load attempt.
func RecordSourceLoad(source, result string, latencyMs float64) {
	globalManager.sourceLoads.WithLabelValues(source, result).Inc()
	globalManager.sourceLoadLatency.WithLabelValues(source).Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordCacheInvalidation records why the cache was dropped.
func RecordCacheInvalidation(reason string) {
	globalManager.cacheInvalidations.WithLabelValues(reason).Inc()
}

// UpdateCacheLastLoad sets the time of the last successful load.
func UpdateCacheLastLoad(unix float64) { globalManager.cacheLastLoadUnix.Set(unix) }

// RecordWatchEvent increments the file watcher event counter.
func RecordWatchEvent() { globalManager.watchEvents.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordReloadRejected increments the rate-limited reload counter.
func RecordReloadRejected() { globalManager.reloadsRejected.Inc() }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
