package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"civreg/internal/user"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestUpsertAndGet() {
	u := user.User{ID: id.UserID{1}, Name: "Kalusha Bwalya", Role: "LOCAL_REGISTRAR"}
	s.Require().NoError(s.store.Upsert(s.ctx, u))

	got, err := s.store.Get(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Kalusha Bwalya", got.Name)
	s.Equal("LOCAL_REGISTRAR", got.Role)

	u.Role = "NATIONAL_REGISTRAR"
	s.Require().NoError(s.store.Upsert(s.ctx, u))
	got, err = s.store.Get(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("NATIONAL_REGISTRAR", got.Role)
}

func (s *MemoryStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, id.UserID{9})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestPasswordVerification() {
	userID := id.UserID{1}
	s.Require().NoError(s.store.SetPassword(s.ctx, userID, "correct horse battery staple"))

	s.NoError(s.store.VerifyPassword(s.ctx, userID, "correct horse battery staple"))
	s.ErrorIs(s.store.VerifyPassword(s.ctx, userID, "wrong password"), sentinel.ErrNotFound)
	s.ErrorIs(s.store.VerifyPassword(s.ctx, id.UserID{2}, "anything"), sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestSetPasswordReplacesHash() {
	userID := id.UserID{1}
	s.Require().NoError(s.store.SetPassword(s.ctx, userID, "first"))
	s.Require().NoError(s.store.SetPassword(s.ctx, userID, "second"))

	s.ErrorIs(s.store.VerifyPassword(s.ctx, userID, "first"), sentinel.ErrNotFound)
	s.NoError(s.store.VerifyPassword(s.ctx, userID, "second"))
}
