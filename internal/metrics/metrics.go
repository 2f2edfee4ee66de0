// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "envadmin"

// DefaultHTTPDurationBuckets are histogram buckets for HTTP request durations.
var DefaultHTTPDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

type HTTPMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)
	return &HTTPMetrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   DefaultHTTPDurationBuckets,
		}, []string{"method", "route", "status_code"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route, and status code",
		}, []string{"method", "route", "status_code"}),
	}
}

// Middleware records request count and latency labelled by chi route
// pattern, which keeps label cardinality bounded.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snoop := httpsnoop.CaptureMetrics(next, w, r)

		route := RoutePattern(r)
		status := strconv.Itoa(snoop.Code)
		m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(snoop.Duration.Seconds())
		m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// RoutePattern returns the matched chi pattern, or "unmatched" when routing
// failed.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pat := rctx.RoutePattern(); pat != "" {
			return pat
		}
	}
	return "unmatched"
}

// AuditMetrics implements usecase.AuditObserver.
type AuditMetrics struct {
	Enqueued      prometheus.Counter
	Dropped       prometheus.Counter
	WriteErrors   prometheus.Counter
	WriteDuration prometheus.Histogram
}

func NewAuditMetrics(reg prometheus.Registerer) *AuditMetrics {
	f := promauto.With(reg)
	return &AuditMetrics{
		Enqueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "enqueued_total",
			Help:      "Audit entries accepted for persistence",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "dropped_total",
			Help:      "Audit entries dropped because the buffer was full or closed",
		}),
		WriteErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "write_errors_total",
			Help:      "Audit entries that failed to persist",
		}),
		WriteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "write_duration_seconds",
			Help:      "Time to persist one audit entry",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *AuditMetrics) AuditEnqueued()    { m.Enqueued.Inc() }
func (m *AuditMetrics) AuditDropped()     { m.Dropped.Inc() }
func (m *AuditMetrics) AuditWriteFailed() { m.WriteErrors.Inc() }

func (m *AuditMetrics) AuditWritten(d time.Duration) {
	m.WriteDuration.Observe(d.Seconds())
}
