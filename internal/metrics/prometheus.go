// ABOUTME: Prometheus metrics for the playback session
// ABOUTME: Buffer health gauges fed by telemetry plus ingest and export counters
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for a playback session
type Metrics struct {
	// Buffer telemetry
	BufferSeconds prometheus.Gauge
	QueuedSamples prometheus.Gauge
	Underruns     prometheus.Counter

	// Ingest
	ChunksIngested prometheus.Counter
	SilentDropped  prometheus.Counter
	HistorySeconds prometheus.Gauge

	// Export
	Exports     *prometheus.CounterVec
	ExportBytes prometheus.Histogram

	gatherer prometheus.Gatherer

	mu            sync.Mutex
	lastUnderruns int
}

// NewMetrics creates and registers all metrics on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		BufferSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tape_buffer_seconds",
			Help: "Seconds of audio queued for the output callback",
		}),
		QueuedSamples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tape_buffer_queued_samples",
			Help: "Interleaved samples queued for the output callback",
		}),
		Underruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "tape_buffer_underruns_total",
			Help: "Total frames of silence emitted because the buffer was empty",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "tape_chunks_ingested_total",
			Help: "Total generator chunks appended to history",
		}),
		SilentDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tape_chunks_silent_dropped_total",
			Help: "Total all-zero generator chunks dropped before ingest",
		}),
		HistorySeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tape_history_seconds",
			Help: "Duration of recorded session history",
		}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tape_exports_total",
			Help: "Total WAV exports by result",
		}, []string{"result"}),
		ExportBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tape_export_size_bytes",
			Help:    "Size of exported WAV files",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8), // 64KB to ~1GB
		}),
		gatherer: reg,
	}
}

// RecordReport applies one buffer telemetry report. underruns is the
// running total since the last buffer clear.
func (m *Metrics) RecordReport(seconds float64, queued, underruns int) {
	m.BufferSeconds.Set(seconds)
	m.QueuedSamples.Set(float64(queued))

	m.mu.Lock()
	defer m.mu.Unlock()

	if underruns < m.lastUnderruns {
		m.lastUnderruns = 0
	}
	if delta := underruns - m.lastUnderruns; delta > 0 {
		m.Underruns.Add(float64(delta))
	}
	m.lastUnderruns = underruns
}

// RecordChunk counts an ingested chunk and the new history length
func (m *Metrics) RecordChunk(historySeconds float64) {
	m.ChunksIngested.Inc()
	m.HistorySeconds.Set(historySeconds)
}

// RecordSilentDrop counts a dropped silent chunk
func (m *Metrics) RecordSilentDrop() {
	m.SilentDropped.Inc()
}

// RecordExport records an export attempt
func (m *Metrics) RecordExport(sizeBytes int, err error) {
	if err != nil {
		m.Exports.WithLabelValues("error").Inc()
		return
	}
	m.Exports.WithLabelValues("ok").Inc()
	m.ExportBytes.Observe(float64(sizeBytes))
}

// ResetSession zeroes per-session gauges after a restart
func (m *Metrics) ResetSession() {
	m.HistorySeconds.Set(0)
	m.BufferSeconds.Set(0)
	m.QueuedSamples.Set(0)

	m.mu.Lock()
	m.lastUnderruns = 0
	m.mu.Unlock()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
