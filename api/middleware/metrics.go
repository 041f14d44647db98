package middleware

import (
	"net/http"
	"time"
)

type httpObserver interface {
	Observe(route, method string, status int, elapsed time.Duration)
}

// Metrics records request counts and latency labelled by the matched chi route pattern.
func Metrics(observer httpObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			// raw paths would explode label cardinality
			observer.Observe(routePattern(r), r.Method, defaultStatus(rec.status), time.Since(start))
		})
	}
}
