package store

import (
	"context"
	"sort"
	"sync"

	"civreg/internal/location"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// Memory is the in-memory location store for tests and local development. It
// mirrors the Postgres store's semantics, including the administrative areas
// denormalization.
type Memory struct {
	mu         sync.RWMutex
	locations  map[id.LocationID]location.Location
	adminAreas map[id.LocationID]bool
}

func NewMemory() *Memory {
	return &Memory{
		locations:  make(map[id.LocationID]location.Location),
		adminAreas: make(map[id.LocationID]bool),
	}
}

func (s *Memory) Upsert(_ context.Context, loc location.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locations[loc.ID] = loc
	if loc.Type == location.TypeAdminStructure {
		s.adminAreas[loc.ID] = true
	} else {
		delete(s.adminAreas, loc.ID)
	}
	return nil
}

func (s *Memory) Get(_ context.Context, locationID id.LocationID) (*location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[locationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &loc, nil
}

func (s *Memory) List(_ context.Context) ([]location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]location.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// IsAdminArea reports whether the location participates in the
// administrative areas denormalization.
func (s *Memory) IsAdminArea(locationID id.LocationID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminAreas[locationID]
}
