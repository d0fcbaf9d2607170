//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"civreg/internal/platform/logger"
	id "civreg/pkg/domain"
	"civreg/pkg/testutil/containers"
)

func TestIdempotencyCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	defer rc.Container.Terminate(context.Background())

	ctx := context.Background()
	eventID := id.NewEventID()

	t.Run("record then seen", func(t *testing.T) {
		t.Cleanup(func() { _ = rc.FlushAll(ctx) })
		c := NewIdempotency(rc.Client, time.Minute, logger.New())

		if c.Seen(ctx, eventID, "txn-1") {
			t.Fatal("fresh transaction id reported as seen")
		}
		c.Record(ctx, eventID, "txn-1")
		if !c.Seen(ctx, eventID, "txn-1") {
			t.Fatal("recorded transaction id not seen")
		}
	})

	t.Run("keys are scoped per event", func(t *testing.T) {
		t.Cleanup(func() { _ = rc.FlushAll(ctx) })
		c := NewIdempotency(rc.Client, time.Minute, logger.New())

		c.Record(ctx, eventID, "txn-1")
		if c.Seen(ctx, id.NewEventID(), "txn-1") {
			t.Fatal("transaction id leaked across events")
		}
	})

	t.Run("entries expire with the TTL", func(t *testing.T) {
		t.Cleanup(func() { _ = rc.FlushAll(ctx) })
		c := NewIdempotency(rc.Client, 100*time.Millisecond, logger.New())

		c.Record(ctx, eventID, "txn-ttl")
		if !c.Seen(ctx, eventID, "txn-ttl") {
			t.Fatal("entry missing before TTL")
		}
		time.Sleep(200 * time.Millisecond)
		if c.Seen(ctx, eventID, "txn-ttl") {
			t.Fatal("entry survived its TTL")
		}
	})

	t.Run("redis outage reads as not seen", func(t *testing.T) {
		c := NewIdempotency(rc.Client, time.Minute, logger.New())
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		if c.Seen(cancelled, eventID, "txn-1") {
			t.Fatal("failed read must degrade to not seen")
		}
	})
}
