package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/akhdanfadh/urlkeep/internal/logger"
)

// RequestLogger logs one line per request.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("%s %s %d %dms [%s]", r.Method, r.URL.Path, sw.status,
				time.Since(start).Milliseconds(), middleware.GetReqID(r.Context()))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireStore answers 503 on store-backed routes when no database is open.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.links == nil {
			jsonError(w, "link store not configured", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
