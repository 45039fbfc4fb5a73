package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ForumGo/internal/service"
	"github.com/utafrali/ForumGo/pkg/httputil"
)

// UserHandler serves the user administration endpoints.
type UserHandler struct {
	service *service.SessionService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.SessionService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// GetUser handles GET /api/v1/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	identity, err := h.service.GetUser(r.Context(), id.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: identity})
}

// DeleteUser handles DELETE /api/v1/users/{userId}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "userId"))
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), id.String()); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
