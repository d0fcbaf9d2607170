// Package handler exposes the event action log over HTTP. Authentication and
// client metadata are applied by the router middleware chain; handlers decode,
// delegate, and encode.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civreg/internal/event"
	"civreg/internal/event/service"
	"civreg/internal/eventconfig"
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/httputil"
	"civreg/pkg/requestcontext"
)

// ScopeConfigRead guards the configuration read endpoint.
const ScopeConfigRead = "config.read"

// Service is the action processor the handler delegates to.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*event.Event, error)
	Get(ctx context.Context, eventID id.EventID) (*event.Event, error)
	Patch(ctx context.Context, eventID id.EventID, in service.PatchInput) (*event.Event, error)
	Submit(ctx context.Context, eventID id.EventID, in service.ActionInput) (*event.Event, error)
	Reindex(ctx context.Context) (int, error)
}

// ConfigProvider serves the configured event types to clients.
type ConfigProvider interface {
	Get(ctx context.Context) (*eventconfig.Config, error)
}

// Handler handles event endpoints.
type Handler struct {
	logger *slog.Logger
	events Service
	config ConfigProvider
}

func New(events Service, config ConfigProvider, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		events: events,
		config: config,
	}
}

// Register mounts the event routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/events", h.handleCreate)
	r.Get("/v1/events/{eventID}", h.handleGet)
	r.Patch("/v1/events/{eventID}", h.handlePatch)
	r.Post("/v1/events/{eventID}/actions/{actionType}", h.handleSubmit)
	r.Get("/v1/config", h.handleGetConfig)
	r.Post("/v1/events/reindex", h.handleReindex)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	in, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ev, err := h.events.Create(ctx, in)
	if err != nil {
		h.logError(ctx, "event create failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, newEventResponse(ev))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ev, err := h.events.Get(ctx, eventID)
	if err != nil {
		h.logError(ctx, "event fetch failed", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newEventResponse(ev))
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[PatchEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ev, err := h.events.Patch(ctx, eventID, service.PatchInput{Type: req.Type})
	if err != nil {
		h.logError(ctx, "event patch failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newEventResponse(ev))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actionType := event.ActionType(chi.URLParam(r, "actionType"))
	if !event.KnownActionType(actionType) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "unknown action type %q", actionType))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	in, err := req.toInput(actionType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ev, err := h.events.Submit(ctx, eventID, in)
	if err != nil {
		h.logError(ctx, "action submit failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newEventResponse(ev))
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requestcontext.HasScope(ctx, ScopeConfigRead) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", ScopeConfigRead))
		return
	}

	cfg, err := h.config.Get(ctx)
	if err != nil {
		h.logError(ctx, "config fetch failed", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) handleReindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requestcontext.HasScope(ctx, event.ScopeRegister) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", event.ScopeRegister))
		return
	}

	indexed, err := h.events.Reindex(ctx)
	if err != nil {
		h.logError(ctx, "reindex failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ReindexResponse{Indexed: indexed})
}

// logError logs client errors at warn and everything else at error; only the
// latter page an operator.
func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	code := dErrors.GetCode(err)
	attrs := []any{
		"request_id", requestID,
		"code", string(code),
		"error", err.Error(),
	}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
}
