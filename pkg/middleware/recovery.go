package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/amadile/Shopping-site-sub001/pkg/httputil"
	"github.com/amadile/Shopping-site-sub001/pkg/logger"
)

// Recovery turns a handler panic into a 500 response and logs the stack.
// http.ErrAbortHandler is re-panicked so the server can abort the connection.
func Recovery(fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}

				l := logger.FromContext(r.Context())
				if l == slog.Default() && fallback != nil {
					l = fallback
				}
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rv),
					slog.String("stack", string(debug.Stack())),
				)
				httputil.WriteErrorCode(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
