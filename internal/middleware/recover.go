package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
	"github.com/go-chi/chi/v5/middleware"
)

// Recoverer logs a panic with its stack and answers with the generic 500 body.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				pkghttp.WriteInternalError(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
