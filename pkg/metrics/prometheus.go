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

	// Extraction
	recordsIngested   prometheus.Counter
	malformedBatches  prometheus.Counter
	periodsExtracted  prometheus.Counter
	extractionLatency prometheus.Histogram

	// Join
	recordsAnnotated *prometheus.CounterVec
	unknownRecords   prometheus.Counter
	ambiguousMatches prometheus.Counter
	joinLatency      prometheus.Histogram
	indexPeriods     prometheus.Gauge
	indexCodes       prometheus.Gauge
	indexOverlaps    prometheus.Gauge

	// Worker pool
	workerActive       prometheus.Gauge
	workerShardLatency prometheus.Histogram
	workerErrors       prometheus.Counter

	// Storage and cache
	storeOps      *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eras",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.recordsIngested = m.counter("extract_records_total", "Participation records fed to the period extractor")
	m.malformedBatches = m.counter("extract_malformed_batches_total", "Extraction batches rejected for malformed records")
	m.periodsExtracted = m.counter("extract_periods_total", "Periods emitted by the extractor")
	m.extractionLatency = m.histogram("extract_duration_seconds", "Duration of one extraction batch")

	m.recordsAnnotated = m.counterVec("join_records_total", "Annotated records by resolved label", "label")
	m.unknownRecords = m.counter("join_unknown_records_total", "Records that matched no labeled period")
	m.ambiguousMatches = m.counter("join_ambiguous_matches_total", "Records covered by more than one labeled period")
	m.joinLatency = m.histogram("join_duration_seconds", "Duration of one annotation batch")
	m.indexPeriods = m.gauge("index_periods", "Labeled periods in the active index")
	m.indexCodes = m.gauge("index_codes", "Entity codes in the active index")
	m.indexOverlaps = m.gauge("index_overlaps", "Overlapping period pairs in the active index")

	m.workerActive = m.gauge("worker_active", "Shards currently being processed")
	m.workerShardLatency = m.histogram("worker_shard_duration_seconds", "Duration of one worker shard")
	m.workerErrors = m.counter("worker_errors_total", "Shards that returned an error")

	m.storeOps = m.counterVec("store_operations_total", "Repository operations", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Failed repository operations", "op")
	m.cacheRequests = m.counterVec("cache_requests_total", "Period cache lookups", "result")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("http_errors_total", "HTTP error responses by endpoint", "endpoint", "method", "error_type")
}

// RecordExtraction records one successful extraction batch.
func RecordExtraction(records, periods int, seconds float64) {
	globalManager.recordsIngested.Add(float64(records))
	globalManager.periodsExtracted.Add(float64(periods))
	globalManager.extractionLatency.Observe(seconds)
}

// RecordMalformedBatch counts an extraction batch rejected for bad input.
func RecordMalformedBatch() {
	globalManager.malformedBatches.Inc()
}

// RecordAnnotated counts records resolved to label.
func RecordAnnotated(label string, n int) {
	globalManager.recordsAnnotated.WithLabelValues(label).Add(float64(n))
}

// RecordJoin records one annotation batch.
func RecordJoin(unknown, ambiguous int, seconds float64) {
	globalManager.unknownRecords.Add(float64(unknown))
	globalManager.ambiguousMatches.Add(float64(ambiguous))
	globalManager.joinLatency.Observe(seconds)
}

// UpdateIndex publishes the shape of the active index.
func UpdateIndex(periods, codes, overlaps int) {
	globalManager.indexPeriods.Set(float64(periods))
	globalManager.indexCodes.Set(float64(codes))
	globalManager.indexOverlaps.Set(float64(overlaps))
}

// WorkerStarted marks a shard as in progress.
func WorkerStarted() { globalManager.workerActive.Inc() }

// WorkerFinished marks a shard as done.
func WorkerFinished(seconds float64, err error) {
	globalManager.workerActive.Dec()
	globalManager.workerShardLatency.Observe(seconds)
	if err != nil {
		globalManager.workerErrors.Inc()
	}
}

// RecordStoreOp counts a repository operation and its failure.
func RecordStoreOp(op string, err error) {
	globalManager.storeOps.WithLabelValues(op).Inc()
	if err != nil {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// RecordCacheHit counts a period cache hit.
func RecordCacheHit() { globalManager.cacheRequests.WithLabelValues("hit").Inc() }

// RecordCacheMiss counts a period cache miss.
func RecordCacheMiss() { globalManager.cacheRequests.WithLabelValues("miss").Inc() }

// RecordCacheError counts a failed cache round trip.
func RecordCacheError() { globalManager.cacheRequests.WithLabelValues("error").Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordErrorByEndpoint counts an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
