// Package metrics exposes gateway counters and latencies in the Prometheus
// text format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docgate"

// Collector owns a private registry; nothing is registered globally.
type Collector struct {
	registry *prometheus.Registry

	callbacks    *prometheus.CounterVec
	saves        *prometheus.CounterVec
	saveAttempts prometheus.Histogram
	saveDuration prometheus.Histogram
	restores     *prometheus.CounterVec
	forcesaves   *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "Editor callbacks accepted, by status code.",
		}, []string{"status"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Save pipeline runs, by outcome.",
		}, []string{"outcome"}),
		saveAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_attempts",
			Help:      "Fetch-and-store attempts per save.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Wall time of the save pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_total",
			Help:      "Version restores, by outcome.",
		}, []string{"outcome"}),
		forcesaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forcesaves_total",
			Help:      "Force-save commands sent, by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.callbacks, c.saves, c.saveAttempts, c.saveDuration,
		c.restores, c.forcesaves, c.requests, c.latency,
	)
	return c
}

func (c *Collector) ObserveCallback(status int) {
	c.callbacks.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (c *Collector) ObserveSave(outcome string, attempts int, elapsed time.Duration) {
	c.saves.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		c.saveAttempts.Observe(float64(attempts))
	}
	c.saveDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveRestore(outcome string) {
	c.restores.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveForceSave(outcome string) {
	c.forcesaves.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one served HTTP request. route is the matched
// route pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
