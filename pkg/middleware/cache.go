package middleware

import "net/http"

// NoStore returns a middleware that marks responses as uncacheable. Stock
// levels and reservation state change on every write.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
