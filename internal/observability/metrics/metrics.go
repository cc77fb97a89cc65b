package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "shop_billing_"

	resultSuccess = "ok"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	queryTotal   *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	subtreeSize *prometheus.HistogramVec

	duplicateBills prometheus.Counter
)

// Init registers observability metrics and pool-backed gauges.
// pool may be nil when the service runs on in-memory stores.
func Init(pool PoolStatter, logger *log.Logger) {
	registerOnce.Do(func() {
		queryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_total",
				Help: "Total billing queries by operation and result",
			},
			[]string{"operation", "result"},
		)
		queryLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "query_latency_seconds",
				Help:    "Billing query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total bill report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Bill report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		subtreeSize = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "subtree_size",
				Help:    "Number of subjects aggregated per subtree query",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"granularity"},
		)

		duplicateBills = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "duplicate_bills_total",
				Help: "Bill records ignored because their key was already aggregated",
			},
		)

		prometheus.MustRegister(
			queryTotal,
			queryLatency,
			exportTotal,
			exportLatency,
			subtreeSize,
			duplicateBills,
		)

		if pool != nil {
			registerPoolMetrics(pool, logger)
		}
	})
}

// ObserveQuery records a facade operation's latency and result.
func ObserveQuery(operation, result string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if queryTotal != nil {
		queryTotal.WithLabelValues(operation, result).Inc()
	}
	if queryLatency != nil {
		queryLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// ObserveExport records report export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveSubtreeSize records how many subjects a subtree query covered.
func ObserveSubtreeSize(granularity string, size int) {
	if size < 0 {
		return
	}
	if subtreeSize != nil {
		subtreeSize.WithLabelValues(granularity).Observe(float64(size))
	}
}

// IncDuplicateBill counts a bill ignored during aggregation.
func IncDuplicateBill() {
	if duplicateBills != nil {
		duplicateBills.Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
