package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"civreg/internal/platform/logger"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []Entry
	failAfter int
}

func (p *fakePublisher) Publish(_ context.Context, entry Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter > 0 && len(p.published) >= p.failAfter {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, entry)
	return nil
}

func appendEntries(t *testing.T, store *MemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := store.Append(context.Background(), Entry{
			ID:            uuid.New(),
			AggregateType: "event",
			AggregateID:   uuid.NewString(),
			EventType:     "event.action.DECLARE",
			Payload:       []byte(`{}`),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestWorkerDrain(t *testing.T) {
	t.Run("publishes pending entries and marks them", func(t *testing.T) {
		store := NewMemoryStore()
		publisher := &fakePublisher{}
		w := NewWorker(store, publisher, logger.New())
		appendEntries(t, store, 3)

		w.drain(context.Background())

		if len(publisher.published) != 3 {
			t.Fatalf("published = %d, want 3", len(publisher.published))
		}
		pending, _ := store.FetchUnpublished(context.Background(), 10)
		if len(pending) != 0 {
			t.Fatalf("pending after drain = %d, want 0", len(pending))
		}
	})

	t.Run("publish failure stops the batch and keeps the rest pending", func(t *testing.T) {
		store := NewMemoryStore()
		publisher := &fakePublisher{failAfter: 2}
		w := NewWorker(store, publisher, logger.New())
		appendEntries(t, store, 5)

		w.drain(context.Background())

		if len(publisher.published) != 2 {
			t.Fatalf("published = %d, want 2", len(publisher.published))
		}
		pending, _ := store.FetchUnpublished(context.Background(), 10)
		if len(pending) != 3 {
			t.Fatalf("pending = %d, want 3", len(pending))
		}
	})

	t.Run("next drain retries what failed", func(t *testing.T) {
		store := NewMemoryStore()
		publisher := &fakePublisher{failAfter: 2}
		w := NewWorker(store, publisher, logger.New())
		appendEntries(t, store, 3)

		w.drain(context.Background())
		publisher.failAfter = 0
		w.drain(context.Background())

		pending, _ := store.FetchUnpublished(context.Background(), 10)
		if len(pending) != 0 {
			t.Fatalf("pending = %d, want 0 after retry", len(pending))
		}
	})
}
