package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// MetricsSink receives one observation per served request.
type MetricsSink interface {
	HTTPRequest(route string, status int, duration time.Duration)
}

// Logging writes one structured line per request and feeds the metrics
// sink. sink may be nil.
func Logging(logger *slog.Logger, sink MetricsSink) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			logger.Info("request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", GetRequestID(r.Context()),
			)
			if sink != nil {
				sink.HTTPRequest(r.URL.Path, rec.status, elapsed)
			}
		})
	}
}
