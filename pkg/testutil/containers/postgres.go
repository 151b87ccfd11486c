//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema holds every table the stores expect. Applied once per container.
const schema = `
CREATE TABLE IF NOT EXISTS smp_service_group (
    business_identifier_scheme TEXT NOT NULL,
    business_identifier        TEXT NOT NULL,
    extension                  TEXT,
    PRIMARY KEY (business_identifier_scheme, business_identifier)
);

CREATE TABLE IF NOT EXISTS smp_ownership (
    business_identifier_scheme TEXT NOT NULL,
    business_identifier        TEXT NOT NULL,
    username                   TEXT NOT NULL,
    PRIMARY KEY (business_identifier_scheme, business_identifier)
);

CREATE TABLE IF NOT EXISTS smp_pmigration (
    id                 TEXT PRIMARY KEY,
    direction          TEXT NOT NULL,
    state              TEXT NOT NULL,
    participant_scheme TEXT NOT NULL,
    participant_value  TEXT NOT NULL,
    initiated_at       TIMESTAMPTZ NOT NULL,
    migration_key      TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS smp_pmigration_outbound_in_progress
    ON smp_pmigration (participant_scheme, participant_value)
    WHERE direction = 'OUTBOUND' AND state = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS smp_settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS smp_audit_outbox (
    id           UUID PRIMARY KEY,
    payload      JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    published_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS smp_audit_events (
    id             UUID PRIMARY KEY,
    ts             TIMESTAMPTZ NOT NULL,
    entity_type    TEXT NOT NULL,
    entity_id      TEXT NOT NULL,
    action         TEXT NOT NULL,
    outcome        TEXT NOT NULL,
    changed_fields TEXT[] NOT NULL DEFAULT '{}',
    username       TEXT NOT NULL DEFAULT '',
    request_id     TEXT NOT NULL DEFAULT '',
    reason         TEXT NOT NULL DEFAULT ''
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("smpd_test"),
		tcpostgres.WithUsername("smpd"),
		tcpostgres.WithPassword("smpd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
