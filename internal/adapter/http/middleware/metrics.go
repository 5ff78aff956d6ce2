package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// HTTPMetrics records request counts and latencies.
type HTTPMetrics struct {
	metrics *metrics.Metrics
}

// NewHTTPMetrics creates the request metrics middleware.
func NewHTTPMetrics(m *metrics.Metrics) *HTTPMetrics {
	return &HTTPMetrics{metrics: m}
}

// Wrap wraps an http.Handler with request metrics.
func (h *HTTPMetrics) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := routeLabel(r)
		h.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		h.metrics.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// routeLabel prefers the matched chi pattern and falls back to normalizePath.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

var idSegmentParents = map[string]bool{
	"accounts": true,
	"account":  true,
}

// normalizePath replaces the path segment following an id-bearing
// collection with {id} to avoid high cardinality.
// /api/v1/accounts/4f0c.../deposits -> /api/v1/accounts/{id}/deposits
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		if idSegmentParents[segments[i-1]] && segments[i] != "" {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
