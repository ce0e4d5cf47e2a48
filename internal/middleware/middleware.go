package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"water-quality-platform/pkg/logging"
	"water-quality-platform/pkg/metrics"
)

// RequestIDHeader carries the request ID in and out of the API.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an incoming X-Request-ID or assigns a new one, stores it
// in the request context for the logger and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Metrics tracks in-flight requests and request durations per route template.
func Metrics(collector *metrics.Collector, logger *logging.StructuredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.ActiveConnections.Inc()
			defer collector.ActiveConnections.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			endpoint := routeTemplate(r)
			duration := time.Since(start)
			collector.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

			logger.Debug(r.Context(), "[HTTP_REQUEST] Request served", logging.Fields{
				"method":      r.Method,
				"endpoint":    endpoint,
				"status":      strconv.Itoa(rec.status),
				"duration_ms": duration.Milliseconds(),
			})
		})
	}
}

// routeTemplate keeps label cardinality bounded by using the matched route
// pattern instead of the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
