// Package metrics provides Prometheus metrics for filedeck.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedeck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filedeck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	fileOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedeck_file_operations_total",
			Help: "File operations by operation and outcome status",
		},
		[]string{"op", "status"},
	)

	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filedeck_upload_bytes_total",
			Help: "Total bytes written by uploads",
		},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedeck_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	externalChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedeck_external_changes_total",
			Help: "Changes to the managed root made outside filedeck",
		},
		[]string{"kind"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder feeds file operation results into the metrics. The zero value is
// ready to use.
type Recorder struct{}

// RecordOp counts one file operation.
func (Recorder) RecordOp(op, status string) {
	fileOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordUpload adds written upload bytes.
func (Recorder) RecordUpload(bytes int64) {
	uploadBytesTotal.Add(float64(bytes))
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordExternalChange counts a change seen by the watcher.
func RecordExternalChange(kind string) {
	externalChangesTotal.WithLabelValues(kind).Inc()
}

// RegisterSSEClients exposes count as the filedeck_sse_clients gauge. A
// second registration replaces nothing and is ignored.
func RegisterSSEClients(count func() int) {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "filedeck_sse_clients",
		Help: "Connected Server-Sent Events clients",
	}, func() float64 { return float64(count()) })
	if err := prometheus.Register(g); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
	}
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. Requests
// are labelled with the matched chi route pattern so that user-supplied paths
// never become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, routePattern(r), rw.statusCode, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
