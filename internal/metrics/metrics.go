// Package metrics exposes Prometheus collectors for the profiling pipeline.
package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogRequestsTotal          *prometheus.CounterVec
	catalogRequestDurationSeconds *prometheus.HistogramVec
	acquisitionsTotal             *prometheus.CounterVec
	sampleBytesTotal              prometheus.Counter
	profilesTotal                 *prometheus.CounterVec
	columnsProfiledTotal          *prometheus.CounterVec
	reportRowsTotal               prometheus.Counter
	datasetsInFlight              prometheus.Gauge
	rateLimitDelaySeconds         *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		catalogRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_catalog_requests_total",
				Help: "Total number of catalog requests, labeled by endpoint and status code.",
			},
			[]string{"endpoint", "code"},
		)

		catalogRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profiler_catalog_request_duration_seconds",
				Help:    "Histogram of catalog request latencies, labeled by endpoint.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"endpoint"},
		)

		acquisitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_acquisitions_total",
				Help: "Total number of sample acquisitions, labeled by outcome.",
			},
			[]string{"status"},
		)

		sampleBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profiler_sample_bytes_total",
				Help: "Total number of sample bytes persisted.",
			},
		)

		profilesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_datasets_total",
				Help: "Total number of datasets handled by the profiling pass, labeled by outcome.",
			},
			[]string{"status"},
		)

		columnsProfiledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "profiler_columns_total",
				Help: "Total number of columns profiled, labeled by predicted label.",
			},
			[]string{"label"},
		)

		reportRowsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "profiler_report_rows_total",
				Help: "Total number of rows appended to the report.",
			},
		)

		datasetsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "profiler_datasets_in_flight",
				Help: "Number of datasets currently being profiled.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "profiler_rate_limit_delay_seconds",
				Help:    "Time spent waiting for a per-host rate limit token.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		)
	})
}

// ObserveFetch records one catalog request. A zero code means the request failed
// before a response arrived.
func ObserveFetch(endpoint string, code int, duration time.Duration) {
	Init()
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	catalogRequestsTotal.WithLabelValues(endpoint, label).Inc()
	if duration > 0 {
		catalogRequestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// ObserveAcquisition increments the acquisition counter for the given status.
func ObserveAcquisition(status string, bytesWritten int) {
	Init()
	acquisitionsTotal.WithLabelValues(status).Inc()
	if bytesWritten > 0 {
		sampleBytesTotal.Add(float64(bytesWritten))
	}
}

// ObserveProfile increments the profiling counter for the given status.
func ObserveProfile(status string) {
	Init()
	profilesTotal.WithLabelValues(status).Inc()
}

// ObserveColumn counts one profiled column under its label.
func ObserveColumn(label string) {
	Init()
	columnsProfiledTotal.WithLabelValues(label).Inc()
}

// ObserveReportRows adds n appended report rows.
func ObserveReportRows(n int) {
	Init()
	reportRowsTotal.Add(float64(n))
}

// IncInFlight increments the in-flight gauge.
func IncInFlight() {
	Init()
	datasetsInFlight.Inc()
}

// DecInFlight decrements the in-flight gauge.
func DecInFlight() {
	Init()
	datasetsInFlight.Dec()
}

// ObserveRateLimitDelay records time spent waiting on a host's limiter.
func ObserveRateLimitDelay(host string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
