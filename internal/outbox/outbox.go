// Package outbox implements the transactional outbox for committed actions.
// The row is written in the same database transaction as the action append,
// then a background worker publishes it to Kafka. Downstream consumers (audit
// trail, analytics, country integrations) read the topic; the action log in
// Postgres stays the source of truth.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending publication.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Store persists and drains outbox entries.
type Store interface {
	// Append writes an entry; it joins any transaction carried by ctx.
	Append(ctx context.Context, entry Entry) error
	// FetchUnpublished returns up to limit entries awaiting publication,
	// oldest first, locked against concurrent workers.
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	// MarkPublished records that the entries reached the broker.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher pushes a single entry to the broker.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}
