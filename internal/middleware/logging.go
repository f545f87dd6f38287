package middleware

import (
	"net/http"
	"time"

	"github.com/moltspace/moltspace/internal/logging"
)

// RequestLogger emits one structured log line per request.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rl *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if query := r.URL.RawQuery; query != "" {
			fields["query"] = query
		}

		switch {
		case rec.status >= 500:
			rl.logger.Error("Request failed", fields)
		case rec.status >= 400:
			rl.logger.Warn("Request rejected", fields)
		default:
			rl.logger.Info("Request handled", fields)
		}
	})
}
