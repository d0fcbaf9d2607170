// Package handler exposes user lookup over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civreg/internal/user"
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

// Store is the user persistence the handler needs.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (*user.User, error)
}

// Handler handles user endpoints.
type Handler struct {
	logger *slog.Logger
	store  Store
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register mounts the user routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/users/{userID}", h.handleGet)
}

// UserResponse is one user as returned to callers. Credentials never leave
// the store.
type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requestcontext.HasScope(ctx, user.ScopeRead) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", user.ScopeRead))
		return
	}

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	u, err := h.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
			return
		}
		h.logger.ErrorContext(ctx, "user fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "user fetch failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, UserResponse{
		ID:   u.ID.String(),
		Name: u.Name,
		Role: u.Role,
	})
}
