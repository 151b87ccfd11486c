package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"smpd/internal/migration/models"
	"smpd/pkg/domain"
	"smpd/pkg/platform/sentinel"
	txcontext "smpd/pkg/platform/tx"
)

// Postgres persists migration records in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE smp_pmigration (
//	    id                 TEXT PRIMARY KEY,
//	    direction          TEXT NOT NULL,
//	    state              TEXT NOT NULL,
//	    participant_scheme TEXT NOT NULL,
//	    participant_value  TEXT NOT NULL,
//	    initiated_at       TIMESTAMPTZ NOT NULL,
//	    migration_key      TEXT NOT NULL
//	);
//	CREATE UNIQUE INDEX smp_pmigration_outbound_in_progress
//	    ON smp_pmigration (participant_scheme, participant_value)
//	    WHERE direction = 'OUTBOUND' AND state = 'IN_PROGRESS';
//
// The partial unique index enforces at most one in-progress outbound
// migration per participant; the application pre-check is a fast path only.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, m *models.ParticipantMigration) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO smp_pmigration (id, direction, state, participant_scheme, participant_value, initiated_at, migration_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Direction, m.State, m.ParticipantID.Scheme(), m.ParticipantID.Value(), m.InitiatedAt, m.MigrationKey,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert migration: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.ParticipantMigration, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, direction, state, participant_scheme, participant_value, initiated_at, migration_key
		 FROM smp_pmigration WHERE id=$1`,
		id,
	)
	return scanMigration(row)
}

func (s *Postgres) FindOutboundInProgress(ctx context.Context, pid domain.ParticipantIdentifier) (*models.ParticipantMigration, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, direction, state, participant_scheme, participant_value, initiated_at, migration_key
		 FROM smp_pmigration
		 WHERE direction=$1 AND state=$2 AND participant_scheme=$3 AND participant_value=$4`,
		models.DirectionOutbound, models.StateInProgress, pid.Scheme(), pid.Value(),
	)
	return scanMigration(row)
}

func (s *Postgres) ExistsOutboundInProgress(ctx context.Context, pid domain.ParticipantIdentifier) (bool, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM smp_pmigration
		     WHERE direction=$1 AND state=$2 AND participant_scheme=$3 AND participant_value=$4)`,
		models.DirectionOutbound, models.StateInProgress, pid.Scheme(), pid.Value(),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("migration existence check: %w", err)
	}
	return exists, nil
}

func (s *Postgres) SetState(ctx context.Context, id string, from, to models.State) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE smp_pmigration SET state=$1 WHERE id=$2 AND state=$3`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("update migration state: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM smp_pmigration WHERE id=$1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("migration state check: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *Postgres) List(ctx context.Context, direction models.Direction, state models.State) ([]*models.ParticipantMigration, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT id, direction, state, participant_scheme, participant_value, initiated_at, migration_key
		 FROM smp_pmigration
		 WHERE direction=$1 AND state=$2
		 ORDER BY initiated_at DESC`,
		direction, state,
	)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var out []*models.ParticipantMigration
	for rows.Next() {
		m, err := scanMigration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMigration(row rowScanner) (*models.ParticipantMigration, error) {
	var (
		m             models.ParticipantMigration
		scheme, value string
	)
	err := row.Scan(&m.ID, &m.Direction, &m.State, &scheme, &value, &m.InitiatedAt, &m.MigrationKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan migration: %w", err)
	}
	pid, err := domain.NewParticipantIdentifier(scheme, value)
	if err != nil {
		return nil, fmt.Errorf("stored participant identifier: %w", err)
	}
	m.ParticipantID = pid
	return &m, nil
}
