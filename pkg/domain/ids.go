package domain

import (
	"github.com/google/uuid"

	dErrors "civreg/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. An EventID can
// never be passed where a UserID is expected, even though both are UUIDs on
// the wire.
type (
	// EventID identifies a civil-registration event (one case, one action log).
	EventID uuid.UUID
	// ActionID identifies a single appended action within an event.
	ActionID uuid.UUID
	// UserID identifies the actor performing an action.
	UserID uuid.UUID
	// LocationID identifies a location in the administrative hierarchy.
	LocationID uuid.UUID
)

// TransactionID is the client-supplied idempotency key attached to every
// mutating request. It is opaque to the service; equality is all that matters.
type TransactionID string

func (t TransactionID) String() string { return string(t) }

// IsNil reports whether the transaction ID is absent.
func (t TransactionID) IsNil() bool { return t == "" }

func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id ActionID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id LocationID) String() string { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id LocationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewEventID returns a fresh random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewActionID returns a fresh random action ID.
func NewActionID() ActionID { return ActionID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseEventID validates and returns an EventID.
func ParseEventID(s string) (EventID, error) {
	parsed, err := parseUUID(s, "event id")
	if err != nil {
		return EventID{}, err
	}
	return EventID(parsed), nil
}

// ParseActionID validates and returns an ActionID.
func ParseActionID(s string) (ActionID, error) {
	parsed, err := parseUUID(s, "action id")
	if err != nil {
		return ActionID{}, err
	}
	return ActionID(parsed), nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s, "user id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseLocationID validates and returns a LocationID.
func ParseLocationID(s string) (LocationID, error) {
	parsed, err := parseUUID(s, "location id")
	if err != nil {
		return LocationID{}, err
	}
	return LocationID(parsed), nil
}
