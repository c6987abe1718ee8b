// Package metrics collects and exposes Prometheus metrics for the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and updates the service's request metrics.
type Collector struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shrtnr_http_requests_total",
			Help: "Handled HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shrtnr_http_request_duration_seconds",
			Help:    "HTTP request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(c.requestsTotal, c.requestDuration)

	return c
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Middleware records count and latency of every handled request.
func (c *Collector) Middleware(h http.Handler) http.Handler {
	middleware := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h.ServeHTTP(recorder, r)

		c.requestsTotal.WithLabelValues(r.Method, strconv.Itoa(recorder.status)).Inc()
		c.requestDuration.Observe(time.Since(start).Seconds())
	}

	return http.HandlerFunc(middleware)
}
