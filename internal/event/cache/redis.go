// Package cache provides the Redis-backed retry fast path for action
// submissions. The database unique constraint on (event_id, transaction_id)
// is the source of truth for idempotency; this cache only lets a hot retry
// skip the row lock. A cache miss or Redis outage degrades to the
// transactional path, never to incorrect behavior.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "civreg/pkg/domain"
)

// Idempotency records transaction ids that have already committed.
type Idempotency struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewIdempotency(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Idempotency {
	return &Idempotency{client: client, ttl: ttl, logger: logger}
}

func key(eventID id.EventID, txnID id.TransactionID) string {
	return "event:txn:" + eventID.String() + ":" + txnID.String()
}

// Seen reports whether this transaction id already committed for the event.
// Errors read as "not seen" so Redis trouble only costs a row lock.
func (c *Idempotency) Seen(ctx context.Context, eventID id.EventID, txnID id.TransactionID) bool {
	n, err := c.client.Exists(ctx, key(eventID, txnID)).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "idempotency cache read failed", "error", err)
		return false
	}
	return n > 0
}

// Record marks a transaction id as committed. Best effort.
func (c *Idempotency) Record(ctx context.Context, eventID id.EventID, txnID id.TransactionID) {
	if err := c.client.Set(ctx, key(eventID, txnID), 1, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "idempotency cache write failed", "error", err)
	}
}
