// Package metrics exposes Prometheus collectors for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the recording interface middleware and handlers depend on.
type Recorder interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
	RecordAuthFailure(surface string)
}

// Collector implements Recorder with Prometheus metrics.
type Collector struct {
	requestDuration *prometheus.HistogramVec
	authFailures    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawd_http_request_duration_seconds",
			Help:    "HTTP request duration by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawd_auth_failures_total",
			Help: "Rejected authentication attempts by surface (session or bearer).",
		}, []string{"surface"}),
	}
	reg.MustRegister(c.requestDuration, c.authFailures)
	return c
}

func (c *Collector) ObserveRequest(method, route string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (c *Collector) RecordAuthFailure(surface string) {
	c.authFailures.WithLabelValues(surface).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Compile-time check that Collector implements Recorder.
var _ Recorder = (*Collector)(nil)
