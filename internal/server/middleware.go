package server

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/agentgate/agentgate/internal/common/requestid"
)

// loggingMiddleware logs each request once it's been served.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		entry := log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    sw.status,
			"duration":  time.Since(start).String(),
			"requestId": requestid.FromContextOrMissing(r.Context()),
		})
		if sw.status >= http.StatusInternalServerError {
			entry.Warn("Served request")
		} else {
			entry.Debug("Served request")
		}
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
