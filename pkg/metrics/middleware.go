package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// Middleware instruments an HTTP handler: request counts and latency, the
// authentication outcome whenever the request carried credentials or was
// turned away for lacking them, and server-side failures.
func Middleware(m *ServiceMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.ActiveRequests.Inc()
			defer m.ActiveRequests.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := SanitizePath(r.URL.Path)
			m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

			if outcome, ok := authOutcome(r, rec.status); ok {
				m.AuthAttempts.WithLabelValues(r.Method, outcome).Inc()
			}
			if rec.status >= http.StatusInternalServerError {
				m.ErrorsTotal.WithLabelValues("server").Inc()
			}
		})
	}
}

// authOutcome classifies a request's authentication result. Anonymous
// requests count only when the service turned them away, so plaintext
// profiles emit no auth series at all.
func authOutcome(r *http.Request, status int) (string, bool) {
	presented := r.Header.Get("Authorization") != ""
	switch status {
	case http.StatusUnauthorized:
		if presented {
			return "rejected", true
		}
		return "missing", true
	case http.StatusForbidden:
		return "forbidden", presented
	default:
		return "accepted", presented
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
