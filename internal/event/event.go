package event

import (
	"crypto/rand"
	"time"

	id "civreg/pkg/domain"
)

// Event is a civil-registration case represented purely as its ordered action
// log. The first action is always CREATE; insertion order is the only valid
// order. Rows are never deleted — archival is itself an action.
type Event struct {
	ID            id.EventID
	Type          string
	TrackingID    string
	TransactionID id.TransactionID
	Actions       []Action
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Snapshot returns the derived current-state view of the event.
func (e *Event) Snapshot() Snapshot {
	snap := Derive(e.Actions)
	snap.ID = e.ID
	snap.Type = e.Type
	snap.TrackingID = e.TrackingID
	return snap
}

// trackingAlphabet avoids ambiguous characters (0/O, 1/I/L) since tracking
// IDs are read over the phone and typed from paper forms.
const trackingAlphabet = "23456789ACDEFGHJKMNPQRSTUVWXYZ"

// NewTrackingID generates the short human-facing reference printed on
// receipts, e.g. "B7KQ2MD4". Uniqueness is enforced by the store.
func NewTrackingID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return string(buf)
}
