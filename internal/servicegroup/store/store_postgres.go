package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"smpd/internal/servicegroup/models"
	"smpd/pkg/domain"
	"smpd/pkg/platform/sentinel"
	txcontext "smpd/pkg/platform/tx"
)

// Postgres persists service groups in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE smp_service_group (
//	    business_identifier_scheme TEXT NOT NULL,
//	    business_identifier        TEXT NOT NULL,
//	    extension                  TEXT,
//	    PRIMARY KEY (business_identifier_scheme, business_identifier)
//	);
//	CREATE TABLE smp_ownership (
//	    business_identifier_scheme TEXT NOT NULL,
//	    business_identifier        TEXT NOT NULL,
//	    username                   TEXT NOT NULL,
//	    PRIMARY KEY (business_identifier_scheme, business_identifier)
//	);
//
// The primary key on (scheme, value) is the authoritative duplicate guard.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
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

func (s *Postgres) Create(ctx context.Context, sg *models.ServiceGroup) error {
	exec := s.execer(ctx)
	_, err := exec.ExecContext(ctx,
		`INSERT INTO smp_service_group (business_identifier_scheme, business_identifier, extension) VALUES ($1, $2, $3)`,
		sg.ParticipantID.Scheme(), sg.ParticipantID.Value(), sg.Extension,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert service group: %w", err)
	}
	_, err = exec.ExecContext(ctx,
		`INSERT INTO smp_ownership (business_identifier_scheme, business_identifier, username) VALUES ($1, $2, $3)`,
		sg.ParticipantID.Scheme(), sg.ParticipantID.Value(), sg.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert ownership: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, sg *models.ServiceGroup, diff models.Diff) error {
	exec := s.execer(ctx)
	if diff.OwnerChanged {
		res, err := exec.ExecContext(ctx,
			`UPDATE smp_ownership SET username=$1 WHERE business_identifier_scheme=$2 AND business_identifier=$3`,
			sg.OwnerID, sg.ParticipantID.Scheme(), sg.ParticipantID.Value(),
		)
		if err != nil {
			return fmt.Errorf("update ownership: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrNotFound
		}
	}
	if diff.ExtensionChanged {
		res, err := exec.ExecContext(ctx,
			`UPDATE smp_service_group SET extension=$1 WHERE business_identifier_scheme=$2 AND business_identifier=$3`,
			sg.Extension, sg.ParticipantID.Scheme(), sg.ParticipantID.Value(),
		)
		if err != nil {
			return fmt.Errorf("update service group: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, participantID domain.ParticipantIdentifier) error {
	exec := s.execer(ctx)
	res, err := exec.ExecContext(ctx,
		`DELETE FROM smp_service_group WHERE business_identifier_scheme=$1 AND business_identifier=$2`,
		participantID.Scheme(), participantID.Value(),
	)
	if err != nil {
		return fmt.Errorf("delete service group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	_, err = exec.ExecContext(ctx,
		`DELETE FROM smp_ownership WHERE business_identifier_scheme=$1 AND business_identifier=$2`,
		participantID.Scheme(), participantID.Value(),
	)
	if err != nil {
		return fmt.Errorf("delete ownership: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, participantID domain.ParticipantIdentifier) (*models.ServiceGroup, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT sg.extension, o.username
		 FROM smp_service_group sg
		 JOIN smp_ownership o
		   ON o.business_identifier_scheme = sg.business_identifier_scheme
		  AND o.business_identifier = sg.business_identifier
		 WHERE sg.business_identifier_scheme=$1 AND sg.business_identifier=$2`,
		participantID.Scheme(), participantID.Value(),
	)
	var (
		extension sql.NullString
		owner     string
	)
	if err := row.Scan(&extension, &owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find service group: %w", err)
	}
	sg := &models.ServiceGroup{ParticipantID: participantID, OwnerID: owner}
	if extension.Valid {
		sg.Extension = &extension.String
	}
	return sg, nil
}

func (s *Postgres) Exists(ctx context.Context, participantID domain.ParticipantIdentifier) (bool, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM smp_service_group WHERE business_identifier_scheme=$1 AND business_identifier=$2)`,
		participantID.Scheme(), participantID.Value(),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("service group existence check: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM smp_service_group`).Scan(&count); err != nil {
		return 0, fmt.Errorf("service group count: %w", err)
	}
	return count, nil
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID string) ([]*models.ServiceGroup, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT sg.business_identifier_scheme, sg.business_identifier, sg.extension
		 FROM smp_service_group sg
		 JOIN smp_ownership o
		   ON o.business_identifier_scheme = sg.business_identifier_scheme
		  AND o.business_identifier = sg.business_identifier
		 WHERE o.username = $1`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list service groups by owner: %w", err)
	}
	defer rows.Close()

	var out []*models.ServiceGroup
	for rows.Next() {
		var (
			scheme, value string
			extension     sql.NullString
		)
		if err := rows.Scan(&scheme, &value, &extension); err != nil {
			return nil, fmt.Errorf("scan service group: %w", err)
		}
		pid, err := domain.NewParticipantIdentifier(scheme, value)
		if err != nil {
			return nil, fmt.Errorf("stored participant identifier: %w", err)
		}
		sg := &models.ServiceGroup{ParticipantID: pid, OwnerID: ownerID}
		if extension.Valid {
			sg.Extension = &extension.String
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}
