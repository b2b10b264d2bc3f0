// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a pipeline run. The registry
// can be served over promhttp while a long batch is in flight.
type Metrics struct {
	Registry        *prometheus.Registry
	QueriesTotal    *prometheus.CounterVec
	DownloadsTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	BytesDownloaded prometheus.Counter
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfetch_queries_total",
			Help: "Queries processed by the batch driver, by outcome.",
		},
		[]string{"outcome"},
	)
	downloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfetch_downloads_total",
			Help: "Download attempts, by validation status.",
		},
		[]string{"status"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfetch_errors_total",
			Help: "Transport errors seen during downloads, by type.",
		},
		[]string{"error_type"},
	)
	bytesDownloaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookfetch_bytes_downloaded_total",
			Help: "Bytes written to validated output files.",
		},
	)

	registry.MustRegister(queries, downloads, errorsTotal, bytesDownloaded)

	return &Metrics{
		Registry:        registry,
		QueriesTotal:    queries,
		DownloadsTotal:  downloads,
		ErrorsTotal:     errorsTotal,
		BytesDownloaded: bytesDownloaded,
	}
}

// IncQuery increments the per-outcome query counter.
func (m *Metrics) IncQuery(outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}

// IncDownload increments the per-status download counter.
func (m *Metrics) IncDownload(status string) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(status).Inc()
}

// IncError increments the transport error counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// AddBytes records validated output bytes.
func (m *Metrics) AddBytes(n int64) {
	if m == nil {
		return
	}
	m.BytesDownloaded.Add(float64(n))
}
