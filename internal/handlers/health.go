package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
)

// HealthChecker is anything that can report liveness of a backing service
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports the state of each named dependency.
type HealthHandler struct {
	checks map[string]HealthChecker
	logger *slog.Logger
}

func NewHealthHandler(checks map[string]HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]string{"status": "healthy"}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
			body[name] = "down"
			body["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "up"
	}

	pkghttp.WriteJSON(w, status, body)
}
