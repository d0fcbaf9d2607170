// Package handler exposes the location tree over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civreg/internal/location"
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

// Store is the location persistence the handler needs.
type Store interface {
	Upsert(ctx context.Context, loc location.Location) error
	Get(ctx context.Context, locationID id.LocationID) (*location.Location, error)
	List(ctx context.Context) ([]location.Location, error)
}

// Handler handles location endpoints.
type Handler struct {
	logger *slog.Logger
	store  Store
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register mounts the location routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/locations", h.handleList)
	r.Get("/v1/locations/{locationID}", h.handleGet)
	r.Put("/v1/locations/{locationID}", h.handlePut)
}

// LocationRequest is the PUT body. The id comes from the URL.
type LocationRequest struct {
	Name       string     `json:"name"`
	Type       string     `json:"locationType"`
	ParentID   string     `json:"parentId,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}

func (r LocationRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Type == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "locationType is required")
	}
	return nil
}

// LocationResponse is one location as returned to callers.
type LocationResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"locationType"`
	ParentID   *string    `json:"parentId"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}

func newLocationResponse(loc location.Location) LocationResponse {
	resp := LocationResponse{
		ID:         loc.ID.String(),
		Name:       loc.Name,
		Type:       string(loc.Type),
		ValidUntil: loc.ValidUntil,
	}
	if loc.ParentID != nil {
		parent := loc.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locations, err := h.store.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "location list failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "location list failed"))
		return
	}

	out := make([]LocationResponse, 0, len(locations))
	for _, loc := range locations {
		out = append(out, newLocationResponse(loc))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locationID, err := id.ParseLocationID(chi.URLParam(r, "locationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	loc, err := h.store.Get(ctx, locationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "location not found"))
			return
		}
		h.logger.ErrorContext(ctx, "location fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "location fetch failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newLocationResponse(*loc))
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requestcontext.HasScope(ctx, location.ScopeWrite) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", location.ScopeWrite))
		return
	}

	locationID, err := id.ParseLocationID(chi.URLParam(r, "locationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[LocationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	loc := location.Location{
		ID:         locationID,
		Name:       req.Name,
		Type:       location.Type(req.Type),
		ValidUntil: req.ValidUntil,
	}
	if req.ParentID != "" {
		parent, err := id.ParseLocationID(req.ParentID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		loc.ParentID = &parent
	}
	if err := loc.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.store.Upsert(ctx, loc); err != nil {
		h.logger.ErrorContext(ctx, "location upsert failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "location upsert failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newLocationResponse(loc))
}
