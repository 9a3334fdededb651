// Package observability exposes Prometheus metrics for the report pipeline.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bizreports/internal/domain/reports"
)

// Metrics collects report and HTTP metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	runs       *prometheus.CounterVec
	exports    *prometheus.CounterVec
	runTime    *prometheus.HistogramVec
	deliveries *prometheus.CounterVec

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics builds and registers every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_runs_total",
			Help: "Report runs by report type and outcome.",
		}, []string{"report_type", "outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_exports_total",
			Help: "Report exports by format and outcome.",
		}, []string{"format", "outcome"}),
		runTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reports_run_duration_seconds",
			Help:    "Report run latency by report type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"report_type"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_scheduled_deliveries_total",
			Help: "Scheduled report deliveries by outcome.",
		}, []string{"outcome"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reports_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(m.runs, m.exports, m.runTime, m.deliveries, m.requestsTotal, m.requestDuration)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ReportRun records one report run.
func (m *Metrics) ReportRun(reportType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(reportType, outcome).Inc()
	if outcome == "ok" {
		m.runTime.WithLabelValues(reportType).Observe(elapsed.Seconds())
	}
}

// ReportExport records one export attempt.
func (m *Metrics) ReportExport(format, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, outcome).Inc()
}

// ScheduledDelivery records one worker delivery.
func (m *Metrics) ScheduledDelivery(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

// Middleware records request count and latency per matched gin route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

var _ reports.Observer = (*Metrics)(nil)
