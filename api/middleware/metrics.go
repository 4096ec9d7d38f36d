package middleware

import (
	"net/http"
	"time"

	"github.com/nearbuy/hyperlocal-backend/pkg/metrics"
)

// Metrics records per-route request counts and latency. The chi route pattern is
// read after the handler runs so path parameters do not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := wrap(w, r)
			start := time.Now()
			next.ServeHTTP(ww, r)
			m.Observe(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		})
	}
}
