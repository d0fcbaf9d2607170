//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civreg/internal/event"
	"civreg/internal/outbox"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
	"civreg/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	store  *Postgres
	outbox *outbox.PostgresStore
	ctx    context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.outbox = outbox.NewPostgresStore(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) newEvent(txn string) *event.Event {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &event.Event{
		ID:            id.NewEventID(),
		Type:          "V2_BIRTH",
		TrackingID:    event.NewTrackingID(),
		TransactionID: id.TransactionID(txn),
		CreatedAt:     now,
		Actions: []event.Action{{
			ID:            id.NewActionID(),
			Type:          event.ActionCreate,
			Status:        event.StatusAccepted,
			CreatedAt:     now,
			CreatedBy:     id.UserID{1},
			TransactionID: id.TransactionID(txn),
			Declaration:   event.Declaration{"name": "John Doe"},
		}},
	}
}

func (s *PostgresStoreSuite) TestInsertRoundTrip() {
	ev := s.newEvent("pg-txn-1")

	inserted, err := s.store.InsertEvent(s.ctx, ev)
	s.Require().NoError(err)
	s.True(inserted)

	got, err := s.store.GetEvent(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal(ev.ID, got.ID)
	s.Equal(ev.TrackingID, got.TrackingID)
	s.Require().Len(got.Actions, 1)
	s.Equal(event.ActionCreate, got.Actions[0].Type)
	s.Equal("John Doe", got.Actions[0].Declaration["name"])
}

func (s *PostgresStoreSuite) TestInsertIsIdempotentOnTransactionID() {
	first := s.newEvent("pg-txn-1")
	inserted, err := s.store.InsertEvent(s.ctx, first)
	s.Require().NoError(err)
	s.True(inserted)

	second := s.newEvent("pg-txn-1")
	inserted, err = s.store.InsertEvent(s.ctx, second)
	s.Require().NoError(err)
	s.False(inserted)

	found, err := s.store.FindByTransactionID(s.ctx, "pg-txn-1")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
}

func (s *PostgresStoreSuite) TestAppendActionFullPayload() {
	ev := s.newEvent("pg-txn-1")
	_, err := s.store.InsertEvent(s.ctx, ev)
	s.Require().NoError(err)

	assignee := id.UserID{9}
	requestID := id.NewActionID()
	dup := id.NewEventID()
	action := event.Action{
		ID:                 id.NewActionID(),
		Type:               event.ActionDuplicateDetected,
		Status:             event.StatusAccepted,
		CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
		CreatedBy:          id.UserID{2},
		CreatedByUserAgent: "Firefox/140.0 on Linux",
		TransactionID:      "pg-txn-2",
		Duplicates:         []id.EventID{dup},
	}
	s.Require().NoError(s.store.AppendAction(s.ctx, ev.ID, action))

	other := event.Action{
		ID:            id.NewActionID(),
		Type:          event.ActionApproveCorrection,
		Status:        event.StatusAccepted,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
		TransactionID: "pg-txn-3",
		AssignedTo:    nil,
		RequestID:     &requestID,
		Declaration:   event.Declaration{"name": "Jane Doe"},
	}
	s.Require().NoError(s.store.AppendAction(s.ctx, ev.ID, other))

	assign := event.Action{
		ID:            id.NewActionID(),
		Type:          event.ActionAssign,
		Status:        event.StatusAccepted,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
		TransactionID: "pg-txn-4",
		AssignedTo:    &assignee,
	}
	s.Require().NoError(s.store.AppendAction(s.ctx, ev.ID, assign))

	got, err := s.store.GetEvent(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Actions, 4)

	s.Equal([]id.EventID{dup}, got.Actions[1].Duplicates)
	s.Equal("Firefox/140.0 on Linux", got.Actions[1].CreatedByUserAgent)
	s.Require().NotNil(got.Actions[2].RequestID)
	s.Equal(requestID, *got.Actions[2].RequestID)
	s.Require().NotNil(got.Actions[3].AssignedTo)
	s.Equal(assignee, *got.Actions[3].AssignedTo)
}

func (s *PostgresStoreSuite) TestAppendDuplicateTransactionIDConflicts() {
	ev := s.newEvent("pg-txn-1")
	_, err := s.store.InsertEvent(s.ctx, ev)
	s.Require().NoError(err)

	action := event.Action{
		ID:            id.NewActionID(),
		Type:          event.ActionValidate,
		Status:        event.StatusAccepted,
		CreatedAt:     time.Now().UTC(),
		TransactionID: "pg-dup",
	}
	s.Require().NoError(s.store.AppendAction(s.ctx, ev.ID, action))

	action.ID = id.NewActionID()
	err = s.store.AppendAction(s.ctx, ev.ID, action)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestRowLockSerializesSubmissions() {
	ev := s.newEvent("pg-txn-1")
	_, err := s.store.InsertEvent(s.ctx, ev)
	s.Require().NoError(err)

	// Hold the row lock in one transaction while a second transaction tries
	// to take it; the second must observe the first's append.
	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			if _, err := s.store.GetEventForUpdate(ctx, ev.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return s.store.AppendAction(ctx, ev.ID, event.Action{
				ID:            id.NewActionID(),
				Type:          event.ActionDeclare,
				Status:        event.StatusAccepted,
				CreatedAt:     time.Now().UTC(),
				Declaration:   event.Declaration{"name": "first"},
				TransactionID: "pg-race-1",
			})
		})
	}()

	<-locked
	second := make(chan error, 1)
	go func() {
		second <- s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			got, err := s.store.GetEventForUpdate(ctx, ev.ID)
			if err != nil {
				return err
			}
			if len(got.Actions) != 2 {
				s.T().Errorf("second transaction saw %d actions, want 2", len(got.Actions))
			}
			return nil
		})
	}()

	close(release)
	s.Require().NoError(<-done)
	s.Require().NoError(<-second)
}

func (s *PostgresStoreSuite) TestOutboxJoinsEventTransaction() {
	ev := s.newEvent("pg-txn-1")

	err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.store.InsertEvent(ctx, ev); err != nil {
			return err
		}
		return s.outbox.Append(ctx, outbox.Entry{
			AggregateType: "event",
			AggregateID:   ev.ID.String(),
			EventType:     "event.action.CREATE",
			Payload:       []byte(`{"eventId":"` + ev.ID.String() + `"}`),
		})
	})
	s.Require().NoError(err)

	entries, err := s.outbox.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(ev.ID.String(), entries[0].AggregateID)

	s.Require().NoError(s.outbox.MarkPublished(s.ctx, []uuid.UUID{entries[0].ID}))

	entries, err = s.outbox.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries)
}
