// Package metrics provides Prometheus metrics for the KOL arena simulators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the arena service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Simulator metrics
	ticksTotal   *prometheus.CounterVec
	tickLatency  *prometheus.HistogramVec
	tickErrors   *prometheus.CounterVec
	runnerActive *prometheus.GaugeVec

	// Widget state
	entityCounter *prometheus.GaugeVec
	entityRank    *prometheus.GaugeVec
	windowLength  prometheus.Gauge
	logLength     prometheus.Gauge

	// Transient events
	blipsCreated     *prometheus.CounterVec
	blipsExpired     prometheus.Counter
	blipsOverwritten prometheus.Counter
	blipsActive      prometheus.Gauge

	// Change notification fan-out
	subscribers       prometheus.Gauge
	updatesPublished  *prometheus.CounterVec
	updatesDropped    *prometheus.CounterVec
	streamConnections *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kolarena",
		subsystem:        "simulator",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.ticksTotal = m.counterVec("ticks_total", "Total number of simulator ticks by simulator", "simulator")
	m.tickLatency = m.histogramVec("tick_latency_milliseconds", "Time spent applying one tick in milliseconds", "simulator")
	m.tickErrors = m.counterVec("tick_errors_total", "Total number of ticks that returned an error", "simulator")
	m.runnerActive = m.gaugeVec("runner_active", "1 while the simulator loop is running", "simulator")

	m.entityCounter = m.gaugeVec("entity_counter", "Current follower counter per tracked entity", "entity")
	m.entityRank = m.gaugeVec("entity_rank", "Current leaderboard rank per entity", "entity")

	m.windowLength = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chart_window_length",
		Help:      "Number of samples held by the chart window",
	})

	m.logLength = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_length",
		Help:      "Number of entries held by the feed",
	})

	m.blipsCreated = m.counterVec("blips_created_total", "Total number of transient events created by kind", "kind")

	m.blipsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blips_expired_total",
		Help:      "Total number of transient events removed by their display timer",
	})

	m.blipsOverwritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blips_overwritten_total",
		Help:      "Total number of transient events that replaced a still-active event on the same key",
	})

	m.blipsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "blips_active",
		Help:      "Number of transient events currently displayed",
	})

	m.subscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribers",
		Help:      "Number of active change subscribers",
	})

	m.updatesPublished = m.counterVec("updates_published_total", "Total number of change notifications delivered", "topic")
	m.updatesDropped = m.counterVec("updates_dropped_total", "Total number of change notifications dropped for slow subscribers", "topic")
	m.streamConnections = m.gaugeVec("stream_connections", "Open push stream connections by transport", "transport")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Simulator metrics.

// RecordTick increments the tick counter and observes its latency.
func RecordTick(simulator string, latencyMs float64) {
	globalManager.ticksTotal.WithLabelValues(simulator).Inc()
	globalManager.tickLatency.WithLabelValues(simulator).Observe(latencyMs)
}

// RecordTickError increments the tick error counter.
func RecordTickError(simulator string) {
	globalManager.tickErrors.WithLabelValues(simulator).Inc()
}

// UpdateRunnerActive flags whether a simulator loop is running.
func UpdateRunnerActive(simulator string, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	globalManager.runnerActive.WithLabelValues(simulator).Set(v)
}

// UpdateEntityCounter sets the follower counter gauge for an entity.
func UpdateEntityCounter(entity string, value int) {
	globalManager.entityCounter.WithLabelValues(entity).Set(float64(value))
}

// UpdateEntityRank sets the leaderboard rank gauge for an entity.
func UpdateEntityRank(entity string, rank int) {
	globalManager.entityRank.WithLabelValues(entity).Set(float64(rank))
}

// UpdateWindowLength sets the chart window length gauge.
func UpdateWindowLength(n int) {
	globalManager.windowLength.Set(float64(n))
}

// UpdateLogLength sets the feed length gauge.
func UpdateLogLength(n int) {
	globalManager.logLength.Set(float64(n))
}

// Transient event metrics.

// RecordBlipCreated increments the created counter for kind.
func RecordBlipCreated(kind string) {
	globalManager.blipsCreated.WithLabelValues(kind).Inc()
}

// RecordBlipExpired increments the expired counter.
func RecordBlipExpired() {
	globalManager.blipsExpired.Inc()
}

// RecordBlipOverwritten increments the overwrite counter.
func RecordBlipOverwritten() {
	globalManager.blipsOverwritten.Inc()
}

// UpdateBlipsActive sets the active transient event gauge.
func UpdateBlipsActive(n int) {
	globalManager.blipsActive.Set(float64(n))
}

// Fan-out metrics.

// UpdateSubscribers sets the subscriber gauge.
func UpdateSubscribers(n int) {
	globalManager.subscribers.Set(float64(n))
}

// RecordUpdatePublished increments the delivered counter for topic.
func RecordUpdatePublished(topic string) {
	globalManager.updatesPublished.WithLabelValues(topic).Inc()
}

// RecordUpdateDropped increments the dropped counter for topic.
func RecordUpdateDropped(topic string) {
	globalManager.updatesDropped.WithLabelValues(topic).Inc()
}

// AddStreamConnection adjusts the open connection gauge for transport by delta.
func AddStreamConnection(transport string, delta int) {
	globalManager.streamConnections.WithLabelValues(transport).Add(float64(delta))
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
