package logger

import (
	"net/http"
	"strconv"
	"time"

	"infrabeacon/internal/metrics"

	"github.com/sirupsen/logrus"
)

// statusWriter captures the status code and byte count written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessMiddleware logs one line per request and records its duration.
// The request body is never read here.
func AccessMiddleware(l *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)
			metrics.RequestDurationMs.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Observe(float64(dur.Milliseconds()))
			entry := l.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"bytes":       sw.bytes,
				"duration_ms": dur.Milliseconds(),
				"ip":          r.RemoteAddr,
			})
			if sw.status >= http.StatusInternalServerError {
				entry.Warn("http_access")
				return
			}
			entry.Debug("http_access")
		})
	}
}
