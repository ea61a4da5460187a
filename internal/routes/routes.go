package routes

import (
	"net/http"

	"github.com/BradenHooton/vestibule/internal/handlers"
	"github.com/BradenHooton/vestibule/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers the router dispatches to
type Handlers struct {
	Auth   *handlers.AuthHandler
	Home   *handlers.HomeHandler
	Health *handlers.HealthHandler
}

// SessionMiddleware loads the request's session and commits it before the
// response goes out
type SessionMiddleware interface {
	LoadAndSave(next http.Handler) http.Handler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	guard *middleware.Guard,
	sessions SessionMiddleware,
	loginLimit func(http.Handler) http.Handler,
) {
	router.NotFound(h.Home.NotFound)
	router.MethodNotAllowed(h.Home.MethodNotAllowed)

	router.Get("/health", h.Health.Health)

	router.Group(func(r chi.Router) {
		r.Use(guard.RejectBlacklisted)
		r.Use(sessions.LoadAndSave)

		r.Get("/", h.Home.Root)
		r.Get("/login", h.Auth.ShowLogin)
		r.With(loginLimit).Post("/login", h.Auth.SubmitLogin)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireSession)
			r.Get("/home", h.Home.Show)
			r.Post("/home", h.Home.Submit)
		})
	})
}
