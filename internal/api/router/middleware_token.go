package router

import (
	"net/http"
	"strings"
)

const metricsTokenHeader = "X-Metrics-Token"
const metricsTokenQuery = "metrics_token"

// requireMetricsToken guards the scrape endpoint with a shared token.
// When expected is empty, the middleware is a no-op.
func requireMetricsToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(metricsTokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get(metricsTokenQuery))
			}
			if token == "" || token != expected {
				http.Error(w, "invalid metrics token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
