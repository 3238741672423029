package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// El log usa sequence contigua asignada bajo lock (no BIGSERIAL): un rollback no deja huecos.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS medical_records (
		owner           BYTEA PRIMARY KEY,
		name            TEXT NOT NULL,
		age             INT NOT NULL CHECK (age BETWEEN 1 AND 149),
		medical_history TEXT NOT NULL,
		document_ref    TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		patient    BYTEA NOT NULL,
		doctor     BYTEA NOT NULL,
		granted    BOOLEAN NOT NULL,
		granted_at TIMESTAMPTZ NOT NULL,
		ordinal    BIGINT NOT NULL,
		PRIMARY KEY (patient, doctor)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_events (
		sequence    BIGINT PRIMARY KEY,
		id          UUID NOT NULL UNIQUE,
		kind        TEXT NOT NULL,
		patient     BYTEA NOT NULL,
		doctor      BYTEA NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_events_patient_idx ON ledger_events (patient, sequence DESC)`,
}

// Migrate crea el esquema si no existe. Es idempotente.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
