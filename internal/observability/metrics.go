// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bundler
type Metrics struct {
	registry *prometheus.Registry

	buildsTotal     *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	buildOutputSize prometheus.Histogram
	buildsInFlight  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundler_builds_total",
				Help: "Total number of build requests",
			},
			[]string{"backend", "status"},
		),
		buildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bundler_build_duration_seconds",
				Help:    "Build latency in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"backend"},
		),
		buildOutputSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bundler_build_output_bytes",
				Help:    "Size of produced bundles in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 10),
			},
		),
		buildsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bundler_builds_in_flight",
				Help: "Current number of builds being processed",
			},
		),
	}
}

// BuildStarted marks a build in flight; the returned func records the outcome.
func (m *Metrics) BuildStarted(backend string) func(outputBytes int, err error) {
	m.buildsInFlight.Inc()
	start := time.Now()

	return func(outputBytes int, err error) {
		m.buildsInFlight.Dec()
		m.buildDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())

		status := "success"
		if err != nil {
			status = "error"
		} else {
			m.buildOutputSize.Observe(float64(outputBytes))
		}
		m.buildsTotal.WithLabelValues(backend, status).Inc()
	}
}

// Handler returns a fiber handler serving the metrics registry
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
