// Package metrics exports controller and HTTP telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketing_export"

// Recorder implements the session controller's Observer and records
// per-route HTTP metrics
type Recorder struct {
	registry *prometheus.Registry

	signIns        *prometheus.CounterVec
	generations    *prometheus.CounterVec
	generationTime prometheus.Histogram
	uploads        *prometheus.CounterVec
	uploadTime     prometheus.Histogram
	requests       *prometheus.CounterVec
	requestTime    *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// NewRecorder registers every metric on a fresh registry
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Content generation requests by outcome.",
		}, []string{"outcome"}),
		generationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of content generation, retries included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Drive uploads by outcome.",
		}, []string{"outcome"}),
		uploadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Latency of folder resolution plus upload.",
			Buckets:   prometheus.DefBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
	}

	cs := []prometheus.Collector{
		r.signIns, r.generations, r.generationTime, r.uploads, r.uploadTime,
		r.requests, r.requestTime, r.activeSessions,
		collectors.NewGoCollector(),
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// Registry exposes the registry, for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveSignIn counts a sign-in attempt
func (r *Recorder) ObserveSignIn(strategy, outcome string) {
	if r == nil {
		return
	}
	r.signIns.WithLabelValues(strategy, outcome).Inc()
}

// ObserveGeneration records a generation outcome and its latency
func (r *Recorder) ObserveGeneration(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(outcome).Inc()
	r.generationTime.Observe(elapsed.Seconds())
}

// ObserveUpload records an upload outcome and its latency
func (r *Recorder) ObserveUpload(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome).Inc()
	r.uploadTime.Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request
func (r *Recorder) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.requestTime.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetActiveSessions reports the current session count
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}
