// Package metrics defines the Prometheus collectors of the process
// engine. A nil *Metrics records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	ProcessesStarted prometheus.Counter
	ProcessesRunning prometheus.Gauge
	ProcessExits     *prometheus.CounterVec
	ProcessDuration  prometheus.Histogram

	// Stream metrics, labelled stdin, stdout or stderr
	StreamBytes   *prometheus.CounterVec
	AdapterErrors *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProcessesStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "procio_processes_started_total",
				Help: "Total number of child processes started",
			},
		),
		ProcessesRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "procio_processes_running",
				Help: "Number of child processes currently running",
			},
		),
		ProcessExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procio_process_exits_total",
				Help: "Total number of child process exits by exit code",
			},
			[]string{"code"},
		),
		ProcessDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "procio_process_duration_seconds",
				Help:    "Child process lifetime in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		StreamBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procio_stream_bytes_total",
				Help: "Total bytes moved through child process streams",
			},
			[]string{"stream"},
		),
		AdapterErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procio_adapter_errors_total",
				Help: "Total number of source and sink failures",
			},
			[]string{"stream"},
		),
	}
}

// Started records a process start.
func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.ProcessesStarted.Inc()
	m.ProcessesRunning.Inc()
}

// Exited records a process exit after running for d.
func (m *Metrics) Exited(code int, d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessesRunning.Dec()
	m.ProcessExits.WithLabelValues(strconv.Itoa(code)).Inc()
	m.ProcessDuration.Observe(d.Seconds())
}

// AddBytes records n bytes moved through stream.
func (m *Metrics) AddBytes(stream string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StreamBytes.WithLabelValues(stream).Add(float64(n))
}

// AdapterError records a failed source or sink on stream.
func (m *Metrics) AdapterError(stream string) {
	if m == nil {
		return
	}
	m.AdapterErrors.WithLabelValues(stream).Inc()
}
