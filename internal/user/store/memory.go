package store

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"civreg/internal/user"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// Memory is the in-memory user store for tests and local development.
type Memory struct {
	mu          sync.RWMutex
	users       map[id.UserID]user.User
	credentials map[id.UserID][]byte
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[id.UserID]user.User),
		credentials: make(map[id.UserID][]byte),
	}
}

func (s *Memory) Upsert(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Memory) Get(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *Memory) SetPassword(_ context.Context, userID id.UserID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[userID] = hash
	return nil
}

func (s *Memory) VerifyPassword(_ context.Context, userID id.UserID, password string) error {
	s.mu.RLock()
	hash, ok := s.credentials[userID]
	s.mu.RUnlock()

	if !ok {
		return sentinel.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return sentinel.ErrNotFound
	}
	return nil
}
