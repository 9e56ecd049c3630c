package middleware

import (
	"net/http"
	"time"

	"github.com/crawd/crawd-server/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request duration per chi route pattern, keeping label
// cardinality bounded regardless of path parameters.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sr, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			rec.ObserveRequest(r.Method, route, sr.status, time.Since(start))
		})
	}
}
