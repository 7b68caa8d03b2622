package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// A *Metrics also satisfies document.Observer.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	conversionsTotal    *prometheus.CounterVec
	analysisDuration    *prometheus.HistogramVec
	jobsTotal           *prometheus.CounterVec
	jobDuration         prometheus.Histogram
}

// New creates a fresh Metrics registry with HTTP, document and job metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spatialdoc",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by spatialdoc",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spatialdoc",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by spatialdoc",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	conversionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spatialdoc",
		Name:      "conversions_total",
		Help:      "Map conversions attempted, by conversion kind and outcome",
	}, []string{"kind", "outcome"})

	analysisDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spatialdoc",
		Name:      "analysis_duration_seconds",
		Help:      "Duration of graph analyses from start to finish",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"kind", "outcome"})

	jobsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spatialdoc",
		Name:      "jobs_total",
		Help:      "Background jobs finished, by job kind and final status",
	}, []string{"kind", "status"})

	jobDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "spatialdoc",
		Name:      "job_duration_seconds",
		Help:      "Duration of background jobs from start to finish",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		conversionsTotal,
		analysisDuration,
		jobsTotal,
		jobDuration,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		conversionsTotal:    conversionsTotal,
		analysisDuration:    analysisDuration,
		jobsTotal:           jobsTotal,
		jobDuration:         jobDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ConversionFinished counts one conversion attempt.
func (m *Metrics) ConversionFinished(kind, outcome string) {
	if m == nil {
		return
	}
	m.conversionsTotal.WithLabelValues(kind, outcome).Inc()
}

// AnalysisFinished observes an analysis duration.
func (m *Metrics) AnalysisFinished(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.analysisDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}

// ObserveJob records a finished background job.
func (m *Metrics) ObserveJob(kind, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(kind, status).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
