package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseTrace captures what the handler wrote so the access log can
// report it.
type responseTrace struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTrace) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTrace) Write(p []byte) (int, error) {
	n, err := t.ResponseWriter.Write(p)
	t.bytes += n
	return n, err
}

// Logger emits one structured line per request after the handler returns.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		trace := &responseTrace{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(trace, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", trace.status,
			"bytes", trace.bytes,
			"elapsedMs", time.Since(start).Milliseconds(),
			"requestId", GetRequestID(r.Context()),
		)
	})
}
