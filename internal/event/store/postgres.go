package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"civreg/internal/event"
	id "civreg/pkg/domain"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
	txcontext "civreg/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Postgres persists events and their action logs. The events row carries only
// identity and the mutable type; everything else lives in event_actions,
// ordered by an append sequence. The database transaction is the sole
// serialization point for concurrent writers.
type Postgres struct {
	db        *sql.DB
	txTimeout time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, txTimeout: defaultTxTimeout}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return p.db
}

// RunInTx runs fn inside a single database transaction. Store methods called
// with the returned context join the transaction; the outbox store does the
// same, so the action append and its outbox record commit or roll back as one.
func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.txTimeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertEvent persists a new event together with its CREATE action.
// Idempotent on transaction id: a retried create finds the conflict and
// reports inserted=false without touching the existing row.
func (p *Postgres) InsertEvent(ctx context.Context, ev *event.Event) (bool, error) {
	if len(ev.Actions) == 0 || ev.Actions[0].Type != event.ActionCreate {
		return false, fmt.Errorf("insert event: first action must be CREATE")
	}

	var one int
	err := p.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO events (id, event_type, tracking_id, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING 1
	`, uuid.UUID(ev.ID), ev.Type, ev.TrackingID, ev.TransactionID.String(), ev.CreatedAt).Scan(&one)
	if err != nil {
		// RETURNING yields no rows when the insert was skipped by the
		// conflict clause.
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert event: %w", err)
	}

	for _, action := range ev.Actions {
		if err := p.AppendAction(ctx, ev.ID, action); err != nil {
			return false, err
		}
	}
	return true, nil
}

// AppendAction appends one action. The unique (event_id, transaction_id)
// constraint turns a lost idempotency race into ErrConflict instead of a
// duplicate fact.
func (p *Postgres) AppendAction(ctx context.Context, eventID id.EventID, a event.Action) error {
	declaration, err := marshalDeclaration(a.Declaration)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	duplicates, err := marshalDuplicates(a.Duplicates)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}

	var one int
	err = p.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO event_actions (
			id, event_id, action_type, status, created_at, created_by,
			created_at_location, created_by_user_agent, transaction_id,
			declaration, assigned_to, request_id, template_id, reason, duplicates
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (event_id, transaction_id) DO NOTHING
		RETURNING 1
	`,
		uuid.UUID(a.ID),
		uuid.UUID(eventID),
		string(a.Type),
		string(a.Status),
		a.CreatedAt,
		nullableUUID(uuid.UUID(a.CreatedBy)),
		nullableUUID(uuid.UUID(a.CreatedAtLocation)),
		a.CreatedByUserAgent,
		a.TransactionID.String(),
		declaration,
		userIDOrNil(a.AssignedTo),
		actionIDOrNil(a.RequestID),
		a.TemplateID,
		a.Reason,
		duplicates,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

func (p *Postgres) GetEvent(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	return p.getEvent(ctx, eventID, false)
}

// GetEventForUpdate reads the event with its row locked for the remainder of
// the surrounding transaction. Transition validation against a snapshot read
// this way cannot race a concurrent append.
func (p *Postgres) GetEventForUpdate(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	return p.getEvent(ctx, eventID, true)
}

func (p *Postgres) getEvent(ctx context.Context, eventID id.EventID, forUpdate bool) (*event.Event, error) {
	query := `
		SELECT id, event_type, tracking_id, transaction_id, created_at
		FROM events
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	ev := &event.Event{}
	var rawID uuid.UUID
	var txnID string
	err := p.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(eventID)).Scan(
		&rawID, &ev.Type, &ev.TrackingID, &txnID, &ev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	ev.ID = id.EventID(rawID)
	ev.TransactionID = id.TransactionID(txnID)

	actions, err := p.loadActions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ev.Actions = actions
	if n := len(actions); n > 0 {
		ev.UpdatedAt = actions[n-1].CreatedAt
	} else {
		ev.UpdatedAt = ev.CreatedAt
	}
	return ev, nil
}

func (p *Postgres) FindByTransactionID(ctx context.Context, txnID id.TransactionID) (*event.Event, error) {
	var rawID uuid.UUID
	err := p.execer(ctx).QueryRowContext(ctx, `
		SELECT id FROM events WHERE transaction_id = $1
	`, txnID.String()).Scan(&rawID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event by transaction id: %w", err)
	}
	return p.getEvent(ctx, id.EventID(rawID), false)
}

func (p *Postgres) UpdateEventType(ctx context.Context, eventID id.EventID, newType string) error {
	res, err := p.execer(ctx).ExecContext(ctx, `
		UPDATE events SET event_type = $2 WHERE id = $1
	`, uuid.UUID(eventID), newType)
	if err != nil {
		return fmt.Errorf("update event type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event type: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListEvents streams every event through fn, oldest first. Used by the search
// reindex operation; per-event reconstruction keeps memory flat.
func (p *Postgres) ListEvents(ctx context.Context, fn func(*event.Event) error) error {
	rows, err := p.execer(ctx).QueryContext(ctx, `
		SELECT id FROM events ORDER BY created_at
	`)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var ids []id.EventID
	for rows.Next() {
		var rawID uuid.UUID
		if err := rows.Scan(&rawID); err != nil {
			return fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id.EventID(rawID))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate event ids: %w", err)
	}

	for _, eventID := range ids {
		ev, err := p.GetEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) loadActions(ctx context.Context, eventID id.EventID) ([]event.Action, error) {
	rows, err := p.execer(ctx).QueryContext(ctx, `
		SELECT id, action_type, status, created_at, created_by,
		       created_at_location, created_by_user_agent, transaction_id,
		       declaration, assigned_to, request_id, template_id, reason, duplicates
		FROM event_actions
		WHERE event_id = $1
		ORDER BY seq
	`, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []event.Action
	for rows.Next() {
		var (
			a           event.Action
			rawID       uuid.UUID
			actionType  string
			status      string
			createdBy   *uuid.UUID
			location    *uuid.UUID
			txnID       string
			declaration []byte
			assignedTo  *uuid.UUID
			requestID   *uuid.UUID
			duplicates  []byte
		)
		err := rows.Scan(
			&rawID, &actionType, &status, &a.CreatedAt, &createdBy,
			&location, &a.CreatedByUserAgent, &txnID,
			&declaration, &assignedTo, &requestID, &a.TemplateID, &a.Reason, &duplicates,
		)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}

		a.ID = id.ActionID(rawID)
		a.Type = event.ActionType(actionType)
		a.Status = event.ActionStatus(status)
		a.TransactionID = id.TransactionID(txnID)
		if createdBy != nil {
			a.CreatedBy = id.UserID(*createdBy)
		}
		if location != nil {
			a.CreatedAtLocation = id.LocationID(*location)
		}
		if assignedTo != nil {
			assignee := id.UserID(*assignedTo)
			a.AssignedTo = &assignee
		}
		if requestID != nil {
			request := id.ActionID(*requestID)
			a.RequestID = &request
		}
		if a.Declaration, err = unmarshalDeclaration(declaration); err != nil {
			return nil, fmt.Errorf("scan action declaration: %w", err)
		}
		if a.Duplicates, err = unmarshalDuplicates(duplicates); err != nil {
			return nil, fmt.Errorf("scan action duplicates: %w", err)
		}

		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

func marshalDeclaration(d event.Declaration) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func unmarshalDeclaration(raw []byte) (event.Declaration, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d event.Declaration
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func marshalDuplicates(ids []id.EventID) ([]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strs := make([]string, len(ids))
	for i, eventID := range ids {
		strs[i] = eventID.String()
	}
	return json.Marshal(strs)
}

func unmarshalDuplicates(raw []byte) ([]id.EventID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err != nil {
		return nil, err
	}
	ids := make([]id.EventID, 0, len(strs))
	for _, s := range strs {
		eventID, err := id.ParseEventID(s)
		if err != nil {
			// Legacy rows may reference ids in older formats; skip them
			// rather than failing the whole reconstruction.
			continue
		}
		ids = append(ids, eventID)
	}
	return ids, nil
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

func userIDOrNil(u *id.UserID) *uuid.UUID {
	if u == nil {
		return nil
	}
	raw := uuid.UUID(*u)
	return &raw
}

func actionIDOrNil(a *id.ActionID) *uuid.UUID {
	if a == nil {
		return nil
	}
	raw := uuid.UUID(*a)
	return &raw
}
