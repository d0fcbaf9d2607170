package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory outbox used by unit tests.
type MemoryStore struct {
	mu        sync.Mutex
	entries   []Entry
	published map[uuid.UUID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{published: make(map[uuid.UUID]bool)}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []Entry
	for _, e := range s.entries {
		if s.published[e.ID] {
			continue
		}
		pending = append(pending, e)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = true
	}
	return nil
}

// All returns every appended entry, for test assertions.
func (s *MemoryStore) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}
