package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/rpattn/candh/internal/metrics"
)

// MetricsMiddleware counts history queries by route and status code.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			m.ObserveQuery(routeLabel(r.URL.Path), rw.statusCode)
		})
	}
}

// routeLabel keeps label cardinality fixed.
func routeLabel(p string) string {
	switch path.Base(strings.TrimSuffix(p, "/")) {
	case "export":
		return "export"
	case "diff":
		return "diff"
	}
	return "list"
}
