package handlers

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/vestibule/internal/auth"
	"github.com/BradenHooton/vestibule/internal/session"
	"github.com/BradenHooton/vestibule/internal/views"
	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
)

// HomeHandler serves the dashboard and the fallback pages.
type HomeHandler struct {
	views  *views.Renderer
	logger *slog.Logger
}

func NewHomeHandler(renderer *views.Renderer, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{views: renderer, logger: logger}
}

// Show handles GET /home
func (h *HomeHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	csrf, err := sess.EnsureCSRFToken()
	if err != nil {
		h.logger.Error("failed to issue csrf token", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
		return
	}

	data := views.PageData{
		CSRFToken: csrf,
		Username:  sess.Username(),
		Flashes:   sess.PopFlashes(),
	}
	if err := h.views.Render(w, http.StatusOK, views.PageHome, data); err != nil {
		h.logger.Error("failed to render home page", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
	}
}

// Submit handles POST /home. There is nothing to process yet; it only
// checks the CSRF token and reports back.
func (h *HomeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		pkghttp.WriteError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if auth.ValidCSRFToken(sess.CSRFToken(), r.PostFormValue("csrf_token")) {
		sess.AddFlash(MsgNothingToProcess)
	} else {
		sess.AddFlash(MsgInvalidCSRF)
	}

	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// Root handles GET /
func (h *HomeHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home", http.StatusFound)
}

// NotFound renders the 404 page.
func (h *HomeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Render(w, http.StatusNotFound, views.PageNotFound, views.PageData{}); err != nil {
		h.logger.Error("failed to render not found page", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
	}
}

func (h *HomeHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteMethodNotAllowed(w)
}
