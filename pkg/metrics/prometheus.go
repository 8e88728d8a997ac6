// Package metrics provides Prometheus metrics for the notification webhook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	notifications   *prometheus.CounterVec
	dedupHits       prometheus.Counter
	dedupEntries    prometheus.Gauge
	resolutions     *prometheus.CounterVec
	matchScore      prometheus.Histogram
	pipelineLatency prometheus.Histogram

	// Guide index
	guideRebuilds        prometheus.Counter
	guideHits            prometheus.Counter
	guideEntries         prometheus.Gauge
	guideMemoryWarnings  prometheus.Counter
	guideRebuildDuration prometheus.Histogram

	// Collaborators
	remoteSearches      *prometheus.CounterVec
	remoteSearchLatency prometheus.Histogram
	catalogLookups      *prometheus.CounterVec
	pushAttempts        prometheus.Counter
	pushResults         *prometheus.CounterVec
	pushLatency         prometheus.Histogram
	probes              *prometheus.CounterVec
	probeCacheSize      prometheus.Gauge

	// Probe queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec
	errorsByType        *prometheus.CounterVec
	errorsByEndpoint    *prometheus.CounterVec

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

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "snappier",
		subsystem:        "notify",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		scoreBuckets:     []float64{-10, 0, 2, 4, 6, 8, 10, 12, 16, 20, 30},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.notifications = m.counterVec("notifications_total", "Webhook events by action and outcome", "action", "outcome")
	m.dedupHits = m.counter("dedup_hits_total", "Events suppressed as duplicates inside the dedup window")
	m.dedupEntries = m.gauge("dedup_entries", "Entries currently held by the deduplicator")
	m.resolutions = m.counterVec("resolutions_total", "Programme resolutions by source", "source")
	m.matchScore = m.histogram("match_score", "Score of the selected programme candidate", m.scoreBuckets)
	m.pipelineLatency = m.histogram("pipeline_latency_milliseconds", "End-to-end /notify processing latency", m.histogramBuckets)

	m.guideRebuilds = m.counter("guide_index_rebuilds_total", "Guide index rebuilds (cache misses)")
	m.guideHits = m.counter("guide_index_hits_total", "Guide index reuses (cache hits)")
	m.guideEntries = m.gauge("guide_index_entries", "Entries held by the current guide index")
	m.guideMemoryWarnings = m.counter("guide_index_memory_warnings_total", "Guide index builds that hit the size ceiling")
	m.guideRebuildDuration = m.histogram("guide_index_rebuild_duration_milliseconds", "Guide index rebuild duration", m.histogramBuckets)

	m.remoteSearches = m.counterVec("remote_search_total", "Remote search calls by outcome", "outcome")
	m.remoteSearchLatency = m.histogram("remote_search_latency_milliseconds", "Remote search latency", m.histogramBuckets)
	m.catalogLookups = m.counterVec("catalog_lookups_total", "Catalog lookups by kind and outcome", "kind", "outcome")
	m.pushAttempts = m.counter("push_attempts_total", "Push transport attempts including retries")
	m.pushResults = m.counterVec("push_results_total", "Push deliveries by final result", "result")
	m.pushLatency = m.histogram("push_latency_milliseconds", "Push delivery latency including retries", m.histogramBuckets)
	m.probes = m.counterVec("https_probes_total", "HTTPS capability probes by result", "result")
	m.probeCacheSize = m.gauge("https_cache_size", "Hosts held by the HTTPS capability cache")

	m.queueSize = m.gauge("probe_queue_size", "Probe tasks waiting in the queue")
	m.queueCapacity = m.gauge("probe_queue_capacity", "Probe queue capacity")
	m.queueEnqueued = m.counter("probe_queue_enqueue_total", "Probe tasks enqueued")
	m.queueDequeued = m.counter("probe_queue_dequeue_total", "Probe tasks dequeued")
	m.queueEnqueueErrors = m.counter("probe_queue_enqueue_errors_total", "Probe tasks rejected by the queue")
	m.workerActiveCount = m.gauge("probe_worker_active_count", "Probe workers running")
	m.workerProcessingLatency = m.histogram("probe_worker_latency_milliseconds", "Probe task processing latency", m.histogramBuckets)
	m.workerErrors = m.counter("probe_worker_errors_total", "Probe tasks that failed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordNotification counts a processed webhook event.
func RecordNotification(action, outcome string) {
	globalManager.notifications.WithLabelValues(action, outcome).Inc()
}

// RecordDedupHit counts a suppressed duplicate.
func RecordDedupHit() { globalManager.dedupHits.Inc() }

// UpdateDedupEntries sets the deduplicator size gauge.
func UpdateDedupEntries(n int) { globalManager.dedupEntries.Set(float64(n)) }

// RecordResolution counts where programme metadata came from: remote, guide or none.
func RecordResolution(source string) { globalManager.resolutions.WithLabelValues(source).Inc() }

// RecordMatchScore observes the score of a selected candidate.
func RecordMatchScore(score float64) { globalManager.matchScore.Observe(score) }

// RecordPipelineLatency observes end-to-end processing time.
func RecordPipelineLatency(latencyMs float64) { globalManager.pipelineLatency.Observe(latencyMs) }

// RecordGuideRebuild records an index rebuild and its duration.
func RecordGuideRebuild(durationMs float64, entries int, memoryWarning bool) {
	globalManager.guideRebuilds.Inc()
	globalManager.guideRebuildDuration.Observe(durationMs)
	globalManager.guideEntries.Set(float64(entries))
	if memoryWarning {
		globalManager.guideMemoryWarnings.Inc()
	}
}

// RecordGuideHit records reuse of the cached index.
func RecordGuideHit() { globalManager.guideHits.Inc() }

// RecordRemoteSearch counts a remote search call.
func RecordRemoteSearch(outcome string, latencyMs float64) {
	globalManager.remoteSearches.WithLabelValues(outcome).Inc()
	globalManager.remoteSearchLatency.Observe(latencyMs)
}

// RecordCatalogLookup counts a catalog lookup.
func RecordCatalogLookup(kind, outcome string) {
	globalManager.catalogLookups.WithLabelValues(kind, outcome).Inc()
}

// RecordPushAttempt counts one push transport attempt.
func RecordPushAttempt() { globalManager.pushAttempts.Inc() }

// RecordPushResult counts the final delivery result.
func RecordPushResult(result string, latencyMs float64) {
	globalManager.pushResults.WithLabelValues(result).Inc()
	globalManager.pushLatency.Observe(latencyMs)
}

// RecordProbe counts an HTTPS capability probe.
func RecordProbe(result string) { globalManager.probes.WithLabelValues(result).Inc() }

// UpdateProbeCacheSize sets the HTTPS capability cache gauge.
func UpdateProbeCacheSize(n int) { globalManager.probeCacheSize.Set(float64(n)) }

// UpdateQueueSize sets the probe queue length gauge.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the probe queue capacity gauge.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted probe task.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a probe task handed to a worker.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected probe task.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerActiveCount sets the number of running probe workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes probe task latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed probe task.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount updates the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
