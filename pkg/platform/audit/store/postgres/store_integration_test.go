//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "proofpass/pkg/platform/audit"
	auditpostgres "proofpass/pkg/platform/audit/store/postgres"
	txcontext "proofpass/pkg/platform/tx"
	"proofpass/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = auditpostgres.New(s.postgres.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditPostgresSuite) TestAppendAndList() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp:  now,
		Subject:    "reg-1",
		ActorID:    "student-1",
		Action:     string(audit.EventBadgeClaimed),
		Attributes: map[string]string{"serial": "1"},
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: now.Add(time.Second),
		Subject:   "reg-1",
		Action:    string(audit.EventRegistrationCreated),
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: now,
		Subject:   "reg-2",
		Action:    string(audit.EventBadgeClaimed),
	}))

	events, err := s.store.ListBySubject(ctx, "reg-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.CategoryIssuance, events[0].Category)
	s.Equal("1", events[0].Attributes["serial"])
	s.Equal(audit.CategoryOperations, events[1].Category)
	s.True(events[0].Timestamp.Equal(now))
}

func (s *AuditPostgresSuite) TestAppendJoinsTransaction() {
	ctx := context.Background()
	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	err = s.store.Append(txcontext.WithTx(ctx, tx), audit.Event{
		Timestamp: time.Now().UTC(),
		Subject:   "event-9",
		Action:    string(audit.EventEventDeleted),
	})
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	events, err := s.store.ListBySubject(ctx, "event-9")
	s.Require().NoError(err)
	s.Empty(events)
}
