// Package telemetry exposes Prometheus metrics for the hub, the sampler and
// the streaming connections.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mxtoo"

// Source provides the hub counters read at scrape time.
type Source interface {
	Subscribers() int
	Published() uint64
	Lagged() uint64
}

// Metrics owns its registry, so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	connectionsTotal  *prometheus.CounterVec
	activeConnections *prometheus.GaugeVec
	sampleDuration    prometheus.Histogram
	samplerHealthy    prometheus.Gauge
}

func NewMetrics(src Source) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Streaming connections accepted, by route.",
		}, []string{"route"}),
		activeConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Streaming connections currently open, by route.",
		}, []string{"route"}),
		sampleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_duration_seconds",
			Help:      "Time spent in one host measurement pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		samplerHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sampler_healthy",
			Help:      "1 while the sampler is running normally, 0 after it stopped on an error.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connectionsTotal,
		m.activeConnections,
		m.sampleDuration,
		m.samplerHealthy,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Subscriptions currently registered with the hub.",
		}, func() float64 { return float64(src.Subscribers()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshots accepted by the hub.",
		}, func() float64 { return float64(src.Published()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_lag_total",
			Help:      "Snapshots dropped because a subscriber had not read the previous one.",
		}, func() float64 { return float64(src.Lagged()) }),
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return m
}

func (m *Metrics) ConnectionOpened(route string) {
	m.connectionsTotal.WithLabelValues(route).Inc()
	m.activeConnections.WithLabelValues(route).Inc()
}

func (m *Metrics) ConnectionClosed(route string) {
	m.activeConnections.WithLabelValues(route).Dec()
}

func (m *Metrics) ObserveSample(d time.Duration) {
	m.sampleDuration.Observe(d.Seconds())
}

func (m *Metrics) SetHealthy(ok bool) {
	if ok {
		m.samplerHealthy.Set(1)
		return
	}
	m.samplerHealthy.Set(0)
}

// WritePrometheus serves the exposition format for the registry.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// Registry is exposed for tests and additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
