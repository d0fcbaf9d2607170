package store

import (
	"context"
	"sync"

	"civreg/internal/event"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// Memory is the in-memory event store used by unit tests and local
// development. It mirrors the Postgres store's semantics: idempotent insert
// on transaction id, ordered append-only action lists, serialized
// transactions.
type Memory struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	events map[id.EventID]*event.Event
	byTxn  map[id.TransactionID]id.EventID
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[id.EventID]*event.Event),
		byTxn:  make(map[id.TransactionID]id.EventID),
	}
}

func (m *Memory) InsertEvent(_ context.Context, ev *event.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byTxn[ev.TransactionID]; exists {
		return false, nil
	}

	clone := cloneEvent(ev)
	m.events[clone.ID] = clone
	m.byTxn[clone.TransactionID] = clone.ID
	return true, nil
}

func (m *Memory) GetEvent(_ context.Context, eventID id.EventID) (*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvent(ev), nil
}

// GetEventForUpdate matches the Postgres row-locking read. The memory store
// serializes whole transactions instead, so this is a plain read.
func (m *Memory) GetEventForUpdate(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	return m.GetEvent(ctx, eventID)
}

func (m *Memory) FindByTransactionID(_ context.Context, txnID id.TransactionID) (*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	eventID, ok := m.byTxn[txnID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvent(m.events[eventID]), nil
}

func (m *Memory) UpdateEventType(_ context.Context, eventID id.EventID, newType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	ev.Type = newType
	return nil
}

func (m *Memory) AppendAction(_ context.Context, eventID id.EventID, action event.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[eventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range ev.Actions {
		if existing.TransactionID == action.TransactionID {
			return sentinel.ErrConflict
		}
	}
	ev.Actions = append(ev.Actions, action)
	ev.UpdatedAt = action.CreatedAt
	return nil
}

func (m *Memory) ListEvents(ctx context.Context, fn func(*event.Event) error) error {
	m.mu.RLock()
	ids := make([]id.EventID, 0, len(m.events))
	for eventID := range m.events {
		ids = append(ids, eventID)
	}
	m.mu.RUnlock()

	for _, eventID := range ids {
		ev, err := m.GetEvent(ctx, eventID)
		if err != nil {
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// RunInTx serializes the unit of work against all other transactions, the
// in-memory analogue of the row lock the Postgres store takes.
func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx)
}

func cloneEvent(ev *event.Event) *event.Event {
	clone := *ev
	clone.Actions = append([]event.Action(nil), ev.Actions...)
	return &clone
}
