//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"smpd/internal/migration/models"
	"smpd/pkg/domain"
	"smpd/pkg/platform/sentinel"
	"smpd/pkg/testutil/containers"
)

type PostgresMigrationStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
}

func TestPostgresMigrationStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresMigrationStoreSuite))
}

func (s *PostgresMigrationStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresMigrationStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "smp_pmigration"))
}

func (s *PostgresMigrationStoreSuite) record(id, value string, direction models.Direction, state models.State) *models.ParticipantMigration {
	pid, err := domain.NewParticipantIdentifier("iso6523-actorid-upis", value)
	s.Require().NoError(err)
	return &models.ParticipantMigration{
		ID:            id,
		Direction:     direction,
		ParticipantID: pid,
		MigrationKey:  "aB3#migrate",
		State:         state,
		InitiatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresMigrationStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	m := s.record("pg-mig-1", "9915:mig-roundtrip", models.DirectionOutbound, models.StateInProgress)

	s.Require().NoError(s.store.Create(ctx, m))

	got, err := s.store.FindByID(ctx, m.ID)
	s.Require().NoError(err)
	s.Equal(m.ParticipantID, got.ParticipantID)
	s.Equal(m.MigrationKey, got.MigrationKey)
	s.Equal(models.StateInProgress, got.State)
	s.WithinDuration(m.InitiatedAt, got.InitiatedAt, time.Second)

	_, err = s.store.FindByID(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresMigrationStoreSuite) TestOutboundInProgressUniqueness() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-1", "9915:mig-unique", models.DirectionOutbound, models.StateInProgress)))

	// The partial index blocks a second live outbound record for the same
	// participant.
	err := s.store.Create(ctx, s.record("pg-mig-2", "9915:mig-unique", models.DirectionOutbound, models.StateInProgress))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	// Terminal and inbound records are not constrained.
	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-3", "9915:mig-unique", models.DirectionOutbound, models.StateCancelled)))
	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-4", "9915:mig-unique", models.DirectionInbound, models.StateMigrated)))
}

func (s *PostgresMigrationStoreSuite) TestFindOutboundInProgress() {
	ctx := context.Background()
	pid, err := domain.NewParticipantIdentifier("iso6523-actorid-upis", "9915:mig-find")
	s.Require().NoError(err)

	_, err = s.store.FindOutboundInProgress(ctx, pid)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-1", "9915:mig-find", models.DirectionOutbound, models.StateCancelled)))
	exists, err := s.store.ExistsOutboundInProgress(ctx, pid)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-2", "9915:mig-find", models.DirectionOutbound, models.StateInProgress)))

	got, err := s.store.FindOutboundInProgress(ctx, pid)
	s.Require().NoError(err)
	s.Equal("pg-mig-2", got.ID)

	exists, err = s.store.ExistsOutboundInProgress(ctx, pid)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *PostgresMigrationStoreSuite) TestSetStateGuards() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-1", "9915:mig-state", models.DirectionOutbound, models.StateInProgress)))

	s.ErrorIs(s.store.SetState(ctx, "missing", models.StateInProgress, models.StateMigrated), sentinel.ErrNotFound)

	s.Require().NoError(s.store.SetState(ctx, "pg-mig-1", models.StateInProgress, models.StateMigrated))

	got, err := s.store.FindByID(ctx, "pg-mig-1")
	s.Require().NoError(err)
	s.Equal(models.StateMigrated, got.State)

	s.ErrorIs(s.store.SetState(ctx, "pg-mig-1", models.StateInProgress, models.StateCancelled), sentinel.ErrInvalidState)
}

func (s *PostgresMigrationStoreSuite) TestList() {
	ctx := context.Background()

	older := s.record("pg-mig-1", "9915:mig-list-a", models.DirectionOutbound, models.StateInProgress)
	older.InitiatedAt = older.InitiatedAt.Add(-time.Hour)
	s.Require().NoError(s.store.Create(ctx, older))
	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-2", "9915:mig-list-b", models.DirectionOutbound, models.StateInProgress)))
	s.Require().NoError(s.store.Create(ctx, s.record("pg-mig-3", "9915:mig-list-c", models.DirectionInbound, models.StateMigrated)))

	out, err := s.store.List(ctx, models.DirectionOutbound, models.StateInProgress)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal("pg-mig-2", out[0].ID)
	s.Equal("pg-mig-1", out[1].ID)
}
