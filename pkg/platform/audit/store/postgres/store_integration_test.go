//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"smpd/pkg/platform/audit"
	txcontext "smpd/pkg/platform/tx"
	"smpd/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestPostgresAuditSuite(t *testing.T) {
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "smp_audit_outbox", "smp_audit_events"))
}

func (s *PostgresAuditSuite) event(entityID string, action audit.Action) audit.Event {
	return audit.Event{
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
		EntityType:    audit.EntityServiceGroup,
		EntityID:      entityID,
		Action:        action,
		Outcome:       audit.OutcomeSuccess,
		ChangedFields: []string{"owner"},
		User:          "alice",
		RequestID:     "req-1",
	}
}

func (s *PostgresAuditSuite) TestAppendAndQuery() {
	ctx := context.Background()
	entityID := "iso6523-actorid-upis::9915:audit-pg"

	s.Require().NoError(s.store.Append(ctx, s.event(entityID, audit.ActionServiceGroupCreated)))
	s.Require().NoError(s.store.Append(ctx, s.event(entityID, audit.ActionServiceGroupUpdated)))
	s.Require().NoError(s.store.Append(ctx, s.event("iso6523-actorid-upis::9915:other", audit.ActionServiceGroupCreated)))

	events, err := s.store.ListByEntity(ctx, audit.EntityServiceGroup, entityID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionServiceGroupUpdated, events[0].Action)
	s.Equal([]string{"owner"}, events[0].ChangedFields)
	s.Equal("alice", events[0].User)

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Len(recent, 3)
}

func (s *PostgresAuditSuite) TestOutboxLifecycle() {
	ctx := context.Background()

	s.Require().NoError(s.store.Append(ctx, s.event("iso6523-actorid-upis::9915:outbox", audit.ActionServiceGroupCreated)))

	pending, err := s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(pending[0].Payload, &body))
	s.Equal("service_group_created", body["action"])
	s.Equal("iso6523-actorid-upis::9915:outbox", body["entity_id"])

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{pending[0].ID}))

	pending, err = s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *PostgresAuditSuite) TestRollbackLeavesNoTrace() {
	ctx := context.Background()

	tx, err := s.pg.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := txcontext.WithTx(ctx, tx)

	s.Require().NoError(s.store.Append(txCtx, s.event("iso6523-actorid-upis::9915:rollback", audit.ActionServiceGroupCreated)))
	s.Require().NoError(tx.Rollback())

	pending, err := s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Empty(events)
}
