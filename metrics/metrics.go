// Package metrics provides Prometheus metrics for mediameta
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a source. A nil *Metrics records nothing.
type Metrics struct {
	// Source request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Indexer metrics
	IndexerCallsTotal *prometheus.CounterVec

	// Result metrics
	RecordsTotal prometheus.Counter

	// Scanner metrics
	ScannedItemsTotal *prometheus.CounterVec
	ScanErrorsTotal   prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg. A nil reg creates unregistered
// metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediameta_requests_total",
			Help: "Total number of source requests",
		},
		[]string{"operation", "status"},
	)

	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediameta_request_duration_seconds",
			Help:    "Duration of source requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.IndexerCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediameta_indexer_calls_total",
			Help: "Total number of indexer calls",
		},
		[]string{"backend", "call"},
	)

	m.RecordsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "mediameta_records_total",
			Help: "Total number of metadata records assembled",
		},
	)

	m.ScannedItemsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediameta_scanned_items_total",
			Help: "Total number of files written to the indexer by the scanner",
		},
		[]string{"service"},
	)

	m.ScanErrorsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "mediameta_scan_errors_total",
			Help: "Total number of files the scanner failed to index",
		},
	)

	return m
}

// ObserveRequest records one finished source request.
func (m *Metrics) ObserveRequest(operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IndexerCall(backend, call string) {
	if m == nil {
		return
	}
	m.IndexerCallsTotal.WithLabelValues(backend, call).Inc()
}

func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

func (m *Metrics) Scanned(service string) {
	if m == nil {
		return
	}
	m.ScannedItemsTotal.WithLabelValues(service).Inc()
}

func (m *Metrics) ScanFailed() {
	if m == nil {
		return
	}
	m.ScanErrorsTotal.Inc()
}
