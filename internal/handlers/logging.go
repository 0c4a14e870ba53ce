package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/postboard/apiserver/internal/logger"
)

// Logging is a middleware that writes one access log record per request.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(log *logger.Logger) *Logging {
	return &Logging{logger: log}
}

// Handle logs method, path, status, size and duration of each request.
func (l *Logging) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.logger.Error("http request", args...)
		case status >= http.StatusBadRequest:
			l.logger.Warn("http request", args...)
		default:
			l.logger.Info("http request", args...)
		}
	})
}
