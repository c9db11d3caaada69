package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is
// valid and records nothing, so wiring metrics stays optional.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	assignmentTotal *prometheus.CounterVec
	pendingReports  prometheus.Gauge
	activeVols      prometheus.Gauge
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	assignmentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_assignment_operations_total",
		Help: "Assignment state transitions by action and outcome",
	}, []string{"action", "outcome"})

	pendingReports := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pending_reports",
		Help: "Reports awaiting a volunteer, as of the last statistics run",
	})

	activeVols := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_volunteers",
		Help: "Volunteers active at the last activity evaluation",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, assignmentTotal, pendingReports, activeVols, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		assignmentTotal: assignmentTotal,
		pendingReports:  pendingReports,
		activeVols:      activeVols,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAssignment counts an assignment transition attempt by outcome.
func (m *MetricsService) ObserveAssignment(action string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.assignmentTotal.WithLabelValues(action, outcome).Inc()
}

// SetPendingReports updates the pending-work gauge.
func (m *MetricsService) SetPendingReports(count int64) {
	if m == nil {
		return
	}
	m.pendingReports.Set(float64(count))
}

// SetActiveVolunteers updates the activity gauge.
func (m *MetricsService) SetActiveVolunteers(count int) {
	if m == nil {
		return
	}
	m.activeVols.Set(float64(count))
}
