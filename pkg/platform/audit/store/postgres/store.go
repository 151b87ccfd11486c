// Package postgres implements the audit store using the transactional outbox
// pattern. Events are written to the outbox table inside the caller's
// transaction and relayed to Kafka by the outbox worker; a materialized
// audit_events table serves queries.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"smpd/pkg/platform/audit"
	txcontext "smpd/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE smp_audit_outbox (
//	    id           UUID PRIMARY KEY,
//	    payload      JSONB NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    published_at TIMESTAMPTZ
//	);
//	CREATE TABLE smp_audit_events (
//	    id             UUID PRIMARY KEY,
//	    ts             TIMESTAMPTZ NOT NULL,
//	    entity_type    TEXT NOT NULL,
//	    entity_id      TEXT NOT NULL,
//	    action         TEXT NOT NULL,
//	    outcome        TEXT NOT NULL,
//	    changed_fields TEXT[] NOT NULL DEFAULT '{}',
//	    username       TEXT NOT NULL DEFAULT '',
//	    request_id     TEXT NOT NULL DEFAULT '',
//	    reason         TEXT NOT NULL DEFAULT ''
//	);
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure relayed to Kafka.
type payload struct {
	ID            string   `json:"id"`
	Timestamp     string   `json:"timestamp"`
	EntityType    string   `json:"entity_type"`
	EntityID      string   `json:"entity_id"`
	Action        string   `json:"action"`
	Outcome       string   `json:"outcome"`
	ChangedFields []string `json:"changed_fields,omitempty"`
	User          string   `json:"user,omitempty"`
	RequestID     string   `json:"request_id,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// Append writes the event to the outbox and the materialized table. When the
// context carries a transaction the writes join it, so a rolled-back mutation
// leaves no audit trace of success.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	body, err := json.Marshal(payload{
		ID:            eventID.String(),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		EntityType:    event.EntityType,
		EntityID:      event.EntityID,
		Action:        string(event.Action),
		Outcome:       string(event.Outcome),
		ChangedFields: event.ChangedFields,
		User:          event.User,
		RequestID:     event.RequestID,
		Reason:        event.Reason,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	exec := s.execer(ctx)
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO smp_audit_outbox (id, payload, created_at) VALUES ($1, $2, $3)`,
		eventID, body, time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO smp_audit_events (id, ts, entity_type, entity_id, action, outcome, changed_fields, username, request_id, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		eventID, event.Timestamp, event.EntityType, event.EntityID,
		string(event.Action), string(event.Outcome),
		pq.Array(event.ChangedFields), event.User, event.RequestID, event.Reason,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, entity_type, entity_id, action, outcome, changed_fields, username, request_id, reason
		 FROM smp_audit_events
		 WHERE entity_type=$1 AND entity_id=$2
		 ORDER BY ts DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, entity_type, entity_id, action, outcome, changed_fields, username, request_id, reason
		 FROM smp_audit_events
		 ORDER BY ts DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// PendingOutbox returns unpublished outbox entries in creation order, locking
// them for the relay's transaction.
func (s *Store) PendingOutbox(ctx context.Context, limit int) ([]OutboxEntry, error) {
	exec := s.db
	rows, err := exec.QueryContext(ctx,
		`SELECT id, payload FROM smp_audit_outbox
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkPublished stamps outbox entries after a successful Kafka produce.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE smp_audit_outbox SET published_at=$1 WHERE id = ANY($2)`,
		time.Now(), pq.Array(ids),
	); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// OutboxEntry is one unpublished audit record.
type OutboxEntry struct {
	ID      uuid.UUID
	Payload []byte
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event   audit.Event
			action  string
			outcome string
			fields  pq.StringArray
		)
		if err := rows.Scan(&event.Timestamp, &event.EntityType, &event.EntityID,
			&action, &outcome, &fields, &event.User, &event.RequestID, &event.Reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		event.Outcome = audit.Outcome(outcome)
		event.ChangedFields = []string(fields)
		events = append(events, event)
	}
	return events, rows.Err()
}
