package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"civreg/internal/event"
	"civreg/internal/event/metrics"
	"civreg/internal/outbox"
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/requestcontext"
)

// Store is the persistence the processor needs. The database transaction is
// the sole serialization point: GetEventForUpdate inside RunInTx locks the
// event row, so transition validation and the append happen against the same
// state.
type Store interface {
	InsertEvent(ctx context.Context, ev *event.Event) (bool, error)
	GetEvent(ctx context.Context, eventID id.EventID) (*event.Event, error)
	GetEventForUpdate(ctx context.Context, eventID id.EventID) (*event.Event, error)
	FindByTransactionID(ctx context.Context, txnID id.TransactionID) (*event.Event, error)
	UpdateEventType(ctx context.Context, eventID id.EventID, newType string) error
	AppendAction(ctx context.Context, eventID id.EventID, action event.Action) error
	ListEvents(ctx context.Context, fn func(*event.Event) error) error
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ConfigValidator checks write-time references against country configuration.
type ConfigValidator interface {
	ValidateEventType(ctx context.Context, eventType string) error
	ValidateCertificateTemplate(ctx context.Context, eventType, templateID string) error
}

// Indexer pushes derived views to the search collaborator.
type Indexer interface {
	Index(ctx context.Context, view any) error
}

// WebhookDispatcher fans committed events out to subscribers.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload any)
}

// OutboxStore records committed actions for asynchronous publication. Appends
// join the surrounding database transaction through the context.
type OutboxStore interface {
	Append(ctx context.Context, entry outbox.Entry) error
}

// IdempotencyCache is an optional fast path for retried submissions. The
// authoritative duplicate check always happens inside the transaction; the
// cache only spares hot retries a row lock.
type IdempotencyCache interface {
	Seen(ctx context.Context, eventID id.EventID, txnID id.TransactionID) bool
	Record(ctx context.Context, eventID id.EventID, txnID id.TransactionID)
}

// Service is the action processor: it validates, deduplicates, persists, and
// dispatches side effects for every mutation of an event's action log.
type Service struct {
	store    Store
	config   ConfigValidator
	outbox   OutboxStore
	indexer  Indexer
	webhooks WebhookDispatcher
	cache    IdempotencyCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option customizes optional service collaborators.
type Option func(*Service)

// WithIdempotencyCache attaches the retry fast-path cache.
func WithIdempotencyCache(cache IdempotencyCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, config ConfigValidator, outboxStore OutboxStore, indexer Indexer, webhooks WebhookDispatcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		config:   config,
		outbox:   outboxStore,
		indexer:  indexer,
		webhooks: webhooks,
		logger:   logger,
		tracer:   otel.Tracer("civreg/event"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput starts a new event. TransactionID makes creation retry-safe.
type CreateInput struct {
	Type          string
	TransactionID id.TransactionID
	Declaration   event.Declaration
	Location      id.LocationID
}

// Create brings a new event into existence with its CREATE action. Calling
// it twice with the same transaction id yields exactly one persisted event.
func (s *Service) Create(ctx context.Context, in CreateInput) (*event.Event, error) {
	ctx, span := s.tracer.Start(ctx, "event.create")
	defer span.End()

	if in.TransactionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "transactionId is required")
	}
	if !requestcontext.HasScope(ctx, event.ScopeDeclare) && !requestcontext.HasScope(ctx, event.ScopeNotify) {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", event.ScopeDeclare)
	}
	if err := s.config.ValidateEventType(ctx, in.Type); err != nil {
		return nil, err
	}

	// Retry fast path: a previous attempt with this transaction id already
	// produced the event.
	if existing, err := s.store.FindByTransactionID(ctx, in.TransactionID); err == nil {
		s.metrics.RecordIdempotentReplay()
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
	}

	now := requestcontext.Now(ctx)
	ev := &event.Event{
		ID:            id.NewEventID(),
		Type:          in.Type,
		TrackingID:    event.NewTrackingID(),
		TransactionID: in.TransactionID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Actions: []event.Action{{
			ID:                 id.NewActionID(),
			Type:               event.ActionCreate,
			Status:             event.StatusAccepted,
			CreatedAt:          now,
			CreatedBy:          requestcontext.ActorID(ctx),
			CreatedAtLocation:  in.Location,
			CreatedByUserAgent: requestcontext.UserAgent(ctx),
			TransactionID:      in.TransactionID,
			Declaration:        in.Declaration.Clone(),
		}},
	}

	var inserted bool
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		inserted, err = s.store.InsertEvent(ctx, ev)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "event insert failed")
		}
		if !inserted {
			return nil
		}
		return s.recordOutbox(ctx, ev.ID, ev.Actions[0])
	})
	if err != nil {
		return nil, err
	}

	if !inserted {
		// Lost the insert race to a concurrent retry; the winner's row is the
		// canonical result.
		s.metrics.RecordIdempotentReplay()
		existing, err := s.store.FindByTransactionID(ctx, in.TransactionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
		}
		return existing, nil
	}

	s.metrics.RecordAction(string(event.ActionCreate), time.Since(now).Seconds())
	s.dispatchSideEffects(ctx, ev)
	return ev, nil
}

// Get returns the event with its full ordered action list.
func (s *Service) Get(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
	}
	return ev, nil
}

// PatchInput evolves an event's mutable attributes. Only the configured type
// may change today.
type PatchInput struct {
	Type string
}

// Patch changes the event's configured type, validated against the current
// country configuration. The change is audited through the outbox.
func (s *Service) Patch(ctx context.Context, eventID id.EventID, in PatchInput) (*event.Event, error) {
	ctx, span := s.tracer.Start(ctx, "event.patch")
	defer span.End()

	if !requestcontext.HasScope(ctx, event.ScopeDeclare) {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "missing required scope %q", event.ScopeDeclare)
	}
	if in.Type == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	if err := s.config.ValidateEventType(ctx, in.Type); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		ev, err := s.store.GetEventForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
		}
		if ev.Type == in.Type {
			return nil
		}
		if err := s.store.UpdateEventType(ctx, eventID, in.Type); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "event patch failed")
		}
		payload, err := json.Marshal(map[string]string{
			"eventId":  eventID.String(),
			"fromType": ev.Type,
			"toType":   in.Type,
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "event patch failed")
		}
		return s.outbox.Append(ctx, outbox.Entry{
			AggregateType: "event",
			AggregateID:   eventID.String(),
			EventType:     "event.patched",
			Payload:       payload,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.dispatchSideEffects(ctx, updated)
	return updated, nil
}

// ActionInput is one requested action against an existing event.
type ActionInput struct {
	Type          event.ActionType
	TransactionID id.TransactionID
	Declaration   event.Declaration
	AssignedTo    *id.UserID
	RequestID     *id.ActionID
	TemplateID    string
	Reason        string
	Duplicates    []id.EventID
	Location      id.LocationID
}

// Submit validates, deduplicates, persists, and dispatches one action.
// Everything between loading the event and appending the action happens in a
// single transaction with the event row locked, so two concurrent
// submissions for the same event serialize and the loser is validated
// against the winner's committed state.
func (s *Service) Submit(ctx context.Context, eventID id.EventID, in ActionInput) (*event.Event, error) {
	ctx, span := s.tracer.Start(ctx, "event.action."+string(in.Type))
	defer span.End()
	start := time.Now()

	if in.TransactionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "transactionId is required")
	}
	if in.Type == event.ActionCreate {
		return nil, dErrors.New(dErrors.CodeBadRequest, "CREATE is not submittable; use event creation")
	}

	// Retry fast path: skip the row lock when the cache already saw this
	// transaction id commit.
	if s.cache != nil && s.cache.Seen(ctx, eventID, in.TransactionID) {
		s.metrics.RecordIdempotentReplay()
		return s.Get(ctx, eventID)
	}

	scopes := requestcontext.Scopes(ctx)
	var (
		result   *event.Event
		appended bool
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		ev, err := s.store.GetEventForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "event not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "event lookup failed")
		}

		// Authoritative idempotency check, under the row lock.
		for _, a := range ev.Actions {
			if a.TransactionID == in.TransactionID {
				s.metrics.RecordIdempotentReplay()
				result = ev
				return nil
			}
		}

		snap := ev.Snapshot()
		if err := event.CanApply(snap.Status, in.Type, scopes); err != nil {
			s.metrics.RecordTransitionDenied(string(dErrors.GetCode(err)))
			return err
		}

		action := s.buildAction(ctx, in)
		if err := action.ValidatePayload(); err != nil {
			return err
		}

		switch in.Type {
		case event.ActionAssign:
			if snap.AssignedTo != nil {
				if *snap.AssignedTo == *in.AssignedTo {
					// Concurrent assignment to the same holder is idempotent.
					result = ev
					return nil
				}
				return dErrors.New(dErrors.CodeConflict, "event is already assigned to another user")
			}
		case event.ActionUnassign:
			if snap.AssignedTo == nil {
				result = ev
				return nil
			}
		case event.ActionRequestCorrection:
			action.Status = event.StatusRequested
		case event.ActionApproveCorrection:
			pending, open := snap.OpenCorrections[*in.RequestID]
			if !open {
				if correctionRequested(ev.Actions, *in.RequestID) {
					return dErrors.New(dErrors.CodeConflict, "correction request already resolved")
				}
				return dErrors.New(dErrors.CodeNotFound, "correction request not found")
			}
			// Approval materializes the requested values as a new accepted
			// action; the original request stays untouched in the log.
			if len(action.Declaration) == 0 {
				action.Declaration = pending
			}
		case event.ActionRejectCorrection:
			if _, open := snap.OpenCorrections[*in.RequestID]; !open {
				if correctionRequested(ev.Actions, *in.RequestID) {
					return dErrors.New(dErrors.CodeConflict, "correction request already resolved")
				}
				return dErrors.New(dErrors.CodeNotFound, "correction request not found")
			}
		case event.ActionPrintCertificate:
			if err := s.config.ValidateCertificateTemplate(ctx, ev.Type, in.TemplateID); err != nil {
				return err
			}
		}

		if err := s.store.AppendAction(ctx, eventID, action); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "concurrent submission with the same transaction id")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "action append failed")
		}
		appended = true
		return s.recordOutbox(ctx, eventID, action)
	})
	if err != nil {
		return nil, err
	}

	// Idempotent replay or no-op special case: return the state as loaded,
	// with no duplicate side effects.
	if result != nil {
		return result, nil
	}
	if !appended {
		return s.Get(ctx, eventID)
	}

	updated, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Record(ctx, eventID, in.TransactionID)
	}
	s.metrics.RecordAction(string(in.Type), time.Since(start).Seconds())
	s.dispatchSideEffects(ctx, updated)
	return updated, nil
}

// Reindex streams every event's derived view back through the search
// indexer. This is the reconciliation path for index drift; the index is a
// cache, never the source of truth.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "event.reindex")
	defer span.End()

	count := 0
	err := s.store.ListEvents(ctx, func(ev *event.Event) error {
		if err := s.indexer.Index(ctx, ev.Snapshot()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "search index rejected event")
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

func (s *Service) buildAction(ctx context.Context, in ActionInput) event.Action {
	return event.Action{
		ID:                 id.NewActionID(),
		Type:               in.Type,
		Status:             event.StatusAccepted,
		CreatedAt:          requestcontext.Now(ctx),
		CreatedBy:          requestcontext.ActorID(ctx),
		CreatedAtLocation:  in.Location,
		CreatedByUserAgent: requestcontext.UserAgent(ctx),
		TransactionID:      in.TransactionID,
		Declaration:        in.Declaration.Clone(),
		AssignedTo:         in.AssignedTo,
		RequestID:          in.RequestID,
		TemplateID:         in.TemplateID,
		Reason:             in.Reason,
		Duplicates:         in.Duplicates,
	}
}

// actionRecord is the JSON shape published through the outbox.
type actionRecord struct {
	EventID   string `json:"eventId"`
	ActionID  string `json:"actionId"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	CreatedBy string `json:"createdBy"`
}

func (s *Service) recordOutbox(ctx context.Context, eventID id.EventID, a event.Action) error {
	payload, err := json.Marshal(actionRecord{
		EventID:   eventID.String(),
		ActionID:  a.ID.String(),
		Type:      string(a.Type),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt.Format(time.RFC3339Nano),
		CreatedBy: a.CreatedBy.String(),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "outbox payload marshal failed")
	}
	if err := s.outbox.Append(ctx, outbox.Entry{
		AggregateType: "event",
		AggregateID:   eventID.String(),
		EventType:     "event.action." + string(a.Type),
		Payload:       payload,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "outbox append failed")
	}
	return nil
}

// dispatchSideEffects pushes the derived view to the search index and fans
// out webhooks. Both are best-effort: the action log has already committed,
// so failures are logged and counted but never surfaced to the caller.
func (s *Service) dispatchSideEffects(ctx context.Context, ev *event.Event) {
	snap := ev.Snapshot()

	if s.indexer != nil {
		if err := s.indexer.Index(ctx, snap); err != nil {
			s.metrics.RecordSideEffectFailure("search")
			s.logger.WarnContext(ctx, "search index push failed",
				"event_id", ev.ID,
				"error", err,
			)
		}
	}

	if s.webhooks != nil {
		s.webhooks.Dispatch(ctx, ev.Type, snap)
	}
}

func correctionRequested(actions []event.Action, requestID id.ActionID) bool {
	for _, a := range actions {
		if a.ID == requestID && a.Type == event.ActionRequestCorrection {
			return true
		}
	}
	return false
}
