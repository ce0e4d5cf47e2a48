package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Generation Metrics
	GenerationDuration     prometheus.Histogram
	ReadingsGeneratedTotal prometheus.Counter
	GenerationErrorsTotal  *prometheus.CounterVec
	DatasetRefreshesTotal  *prometheus.CounterVec

	// Anomaly Metrics
	AnomaliesInjectedTotal *prometheus.CounterVec
	AnomalyRowsAffected    prometheus.Histogram

	// Cache Metrics
	CacheRequestsTotal *prometheus.CounterVec

	// Quality Metrics
	QualityIndex    *prometheus.GaugeVec
	ThresholdAlerts *prometheus.GaugeVec
	ExportRowsTotal prometheus.Counter

	// System Metrics
	ProcessingTimeMS  *prometheus.HistogramVec
	ActiveConnections prometheus.Gauge
}

// NewCollector creates a collector registered with the default Prometheus registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector registered with reg
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of synthetic dataset generation in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),

		ReadingsGeneratedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_generated_total",
				Help:      "Total number of synthetic readings generated",
			},
		),

		GenerationErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_errors_total",
				Help:      "Total number of rejected generation requests by type",
			},
			[]string{"error_type"},
		),

		DatasetRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_refreshes_total",
				Help:      "Total number of dataset cache refreshes by trigger",
			},
			[]string{"trigger"}, // "schedule", "api", "config"
		),

		AnomaliesInjectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_injected_total",
				Help:      "Total number of anomalies injected by parameter and severity",
			},
			[]string{"parameter", "severity"},
		),

		AnomalyRowsAffected: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "anomaly_rows_affected",
				Help:      "Number of readings modified per injected anomaly",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_cache_requests_total",
				Help:      "Dataset cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss", "error"
		),

		QualityIndex: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "quality_index",
				Help:      "Latest water quality index (0-100) by station",
			},
			[]string{"station"},
		),

		ThresholdAlerts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "threshold_alerts",
				Help:      "Threshold alerts raised on the latest readings by parameter",
			},
			[]string{"parameter"},
		),

		ExportRowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_rows_total",
				Help:      "Total number of readings written to CSV exports",
			},
		),

		ProcessingTimeMS: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "processing_time_milliseconds",
				Help:      "Processing time in milliseconds by operation",
				Buckets:   []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
			},
			[]string{"operation"},
		),

		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of in-flight API requests",
			},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordGenerationError increments the rejected generation counter
func (c *Collector) RecordGenerationError(errorType string) {
	c.GenerationErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordAnomaly records one injected anomaly and the rows it touched
func (c *Collector) RecordAnomaly(parameter, severity string, rows int) {
	c.AnomaliesInjectedTotal.WithLabelValues(parameter, severity).Inc()
	c.AnomalyRowsAffected.Observe(float64(rows))
}

// RecordCacheResult increments the cache lookup counter
func (c *Collector) RecordCacheResult(result string) {
	c.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh increments the dataset refresh counter
func (c *Collector) RecordRefresh(trigger string) {
	c.DatasetRefreshesTotal.WithLabelValues(trigger).Inc()
}

// ObserveProcessing records an operation's duration in milliseconds
func (c *Collector) ObserveProcessing(operation string, d time.Duration) {
	c.ProcessingTimeMS.WithLabelValues(operation).Observe(float64(d.Microseconds()) / 1000)
}
