// Package metrics provides Prometheus metrics for the semantic stat engine.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const subsystem = "engine"

// Manager owns every collector of the service.
type Manager struct {
	namespace string
	enabled   bool
	registry  prometheus.Registerer

	// Engine
	computations       prometheus.Counter
	computeLatency     prometheus.Histogram
	derivationsApplied *prometheus.CounterVec
	diagnostics        *prometheus.CounterVec
	normalizations     *prometheus.CounterVec
	batchSize          prometheus.Histogram

	// Registry
	registeredPackages prometheus.Gauge
	registryVersion    prometheus.Gauge
	registryUpdates    *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPauseTime    prometheus.Histogram
}

var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry served on /metrics
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry, which GetRegistry returns from then on. Call it before handlers
// capture GetRegistry. A WithPrometheusRegistry option is overridden.
func Configure(opts ...Option) *Manager {
	reg := prometheus.NewRegistry()
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	m := NewManager(append(all, WithPrometheusRegistry(reg))...)
	customRegistry.Store(reg)
	globalManager.Store(m)
	return m
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "semstat",
		enabled:   true,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Enabled reports whether the manager records anything.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.computations = auto.NewCounter(m.counterOpts(
		"computations_total", "Total number of derivation computations"))
	m.computeLatency = auto.NewHistogram(m.histogramOpts(
		"compute_latency_milliseconds", "Latency of one derivation computation in milliseconds", prometheus.DefBuckets))
	m.derivationsApplied = auto.NewCounterVec(m.counterOpts(
		"derivations_applied_total", "Derived definitions produced, by capability"),
		[]string{"capability"})
	m.diagnostics = auto.NewCounterVec(m.counterOpts(
		"diagnostics_total", "Diagnostics emitted during computation, by reason"),
		[]string{"reason"})
	m.normalizations = auto.NewCounterVec(m.counterOpts(
		"normalizations_total", "Normalize calls, by definition"),
		[]string{"definition"})
	m.batchSize = auto.NewHistogram(m.histogramOpts(
		"batch_size", "Number of requests per batch computation",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}))

	m.registeredPackages = auto.NewGauge(m.gaugeOpts(
		"registered_packages", "Number of registered stat packages"))
	m.registryVersion = auto.NewGauge(m.gaugeOpts(
		"registry_version", "Version of the current registry snapshot"))
	m.registryUpdates = auto.NewCounterVec(m.counterOpts(
		"registry_updates_total", "Registry mutations, by operation"),
		[]string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", prometheus.DefBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"})

	m.memoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "Heap bytes allocated"))
	m.goroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutines", "Number of goroutines"))
	m.gcPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50}))
}

// UpdateSystem records process memory, goroutine count and average GC pause.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.memoryUsage.Set(float64(memoryBytes))
	m.goroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.gcPauseTime.Observe(avgGCPauseMs)
	}
}

// RecordComputation counts one computation and its latency.
func (m *Manager) RecordComputation(latencyMs float64) {
	if !m.enabled {
		return
	}
	m.computations.Inc()
	m.computeLatency.Observe(latencyMs)
}

// RecordDerivation counts one produced target.
func (m *Manager) RecordDerivation(capability string) {
	if m.enabled {
		m.derivationsApplied.WithLabelValues(capability).Inc()
	}
}

// RecordDiagnostic counts one diagnostic.
func (m *Manager) RecordDiagnostic(reason string) {
	if m.enabled {
		m.diagnostics.WithLabelValues(reason).Inc()
	}
}

// RecordNormalize counts one normalize call.
func (m *Manager) RecordNormalize(definition string) {
	if m.enabled {
		m.normalizations.WithLabelValues(definition).Inc()
	}
}

// RecordBatch observes a batch size.
func (m *Manager) RecordBatch(size int) {
	if m.enabled {
		m.batchSize.Observe(float64(size))
	}
}

// UpdateRegistry publishes the registry shape after a mutation.
func (m *Manager) UpdateRegistry(operation string, packages int, version uint64) {
	if !m.enabled {
		return
	}
	m.registryUpdates.WithLabelValues(operation).Inc()
	m.registeredPackages.Set(float64(packages))
	m.registryVersion.Set(float64(version))
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// Package-level helpers recording on the global manager.

// RecordComputation counts one computation and its latency.
func RecordComputation(latencyMs float64) { globalManager.Load().RecordComputation(latencyMs) }

// RecordDerivation counts one produced target.
func RecordDerivation(capability string) { globalManager.Load().RecordDerivation(capability) }

// RecordDiagnostic counts one diagnostic.
func RecordDiagnostic(reason string) { globalManager.Load().RecordDiagnostic(reason) }

// RecordNormalize counts one normalize call.
func RecordNormalize(definition string) { globalManager.Load().RecordNormalize(definition) }

// RecordBatch observes a batch size.
func RecordBatch(size int) { globalManager.Load().RecordBatch(size) }

// UpdateRegistry publishes the registry shape after a mutation.
func UpdateRegistry(operation string, packages int, version uint64) {
	globalManager.Load().UpdateRegistry(operation, packages, version)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.Load().RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.Load().RecordErrorByComponent(component, errorType)
}

// UpdateSystem records process-level gauges on the global manager.
func UpdateSystem(memoryBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.Load().UpdateSystem(memoryBytes, goroutines, avgGCPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
