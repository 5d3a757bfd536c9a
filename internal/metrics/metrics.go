package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hotstart/hotstart/internal/preload"
)

const namespace = "hotstart"

// Metrics holds all Prometheus metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// Reconciliation
	PassesTotal   prometheus.Counter
	PassesDropped prometheus.Counter
	PassDuration  prometheus.Histogram

	// Per app outcomes
	Outcomes       *prometheus.CounterVec
	CaptureLatency *prometheus.HistogramVec
	Captured       *prometheus.GaugeVec

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var _ preload.Observer = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PassesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Completed reconciliation passes",
		}),
		PassesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_dropped_total",
			Help:      "Pass requests dropped because a pass was already running",
		}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Reconciliation pass duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 20},
		}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "app_events_total",
			Help:      "Controller actions per app",
		}, []string{"app", "kind"}),
		CaptureLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_latency_seconds",
			Help:      "Time from launch until the preloaded window was found",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8, 10},
		}, []string{"app"}),
		Captured: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "app_captured",
			Help:      "1 when the app has a hidden hot instance",
		}, []string{"app"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

// Observe records a controller event
func (m *Metrics) Observe(e preload.Event) {
	switch e.Kind {
	case preload.EventPassStarted:
		return
	case preload.EventPassCompleted:
		m.PassesTotal.Inc()
		m.PassDuration.Observe(e.Duration.Seconds())
		return
	case preload.EventPassDropped:
		m.PassesDropped.Inc()
		return
	case preload.EventCaptured:
		m.CaptureLatency.WithLabelValues(e.App).Observe(e.Duration.Seconds())
	}
	m.Outcomes.WithLabelValues(e.App, string(e.Kind)).Inc()
}

// CaptureChanged is meant for Record.OnCaptureChanged
func (m *Metrics) CaptureChanged(r *preload.Record) {
	v := 0.0
	if r.Captured() {
		v = 1
	}
	m.Captured.WithLabelValues(r.Name).Set(v)
}

// Forget drops the per-app series of an app that is no longer configured
func (m *Metrics) Forget(app string) {
	m.Captured.DeleteLabelValues(app)
	m.CaptureLatency.DeleteLabelValues(app)
	m.Outcomes.DeletePartialMatch(prometheus.Labels{"app": app})
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Registry exposes the private registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware creates a Gin middleware for request metrics. Routes are
// labelled by their pattern so per-app paths do not explode cardinality.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
