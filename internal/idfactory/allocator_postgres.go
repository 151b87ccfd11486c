package idfactory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Postgres reserves ID blocks against a generic settings row.
//
// Expected schema:
//
//	CREATE TABLE smp_settings (
//	    key   TEXT PRIMARY KEY,
//	    value TEXT NOT NULL
//	);
//
// The read-modify-write runs in its own transaction under SELECT ... FOR
// UPDATE, so concurrent reservations serialize on the row lock instead of
// relying on the engine's default isolation.
type Postgres struct {
	db       *sql.DB
	baseline int64
}

// NewPostgres creates a settings-backed allocator. The baseline seeds the
// counter when the settings row does not exist yet.
func NewPostgres(db *sql.DB, baseline int64) *Postgres {
	return &Postgres{db: db, baseline: baseline}
}

func (a *Postgres) Reserve(ctx context.Context, blockSize int64) (int64, error) {
	if blockSize <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	txn, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin id reservation: %w", err)
	}
	defer txn.Rollback() //nolint:errcheck

	var raw string
	err = txn.QueryRowContext(ctx,
		`SELECT value FROM smp_settings WHERE key=$1 FOR UPDATE`, SettingsKey,
	).Scan(&raw)

	var first int64
	switch {
	case errors.Is(err, sql.ErrNoRows):
		first = a.baseline
		_, err = txn.ExecContext(ctx,
			`INSERT INTO smp_settings (key, value) VALUES ($1, $2)`,
			SettingsKey, strconv.FormatInt(first+blockSize, 10),
		)
		if err != nil {
			return 0, fmt.Errorf("seed id counter: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("read id counter: %w", err)
	default:
		first, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt id counter %q: %w", raw, err)
		}
		_, err = txn.ExecContext(ctx,
			`UPDATE smp_settings SET value=$1 WHERE key=$2`,
			strconv.FormatInt(first+blockSize, 10), SettingsKey,
		)
		if err != nil {
			return 0, fmt.Errorf("advance id counter: %w", err)
		}
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("commit id reservation: %w", err)
	}
	return first, nil
}
