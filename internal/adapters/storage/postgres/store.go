package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"
)

// appendLockKey es la clave del advisory lock global del log.
// Se toma antes de calcular la próxima sequence y se libera con el commit.
const appendLockKey int64 = 0x6c6564676572 // "ledger"

// Store implementa ledger.Store sobre Postgres.
// Atomic serializa por paciente con pg_advisory_xact_lock, también entre procesos.
type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Records() records.Repository         { return &RecordsRepo{q: s.db} }
func (s *Store) Permissions() permissions.Repository { return &PermissionsRepo{q: s.db} }
func (s *Store) Events() events.Repository           { return &EventsRepo{db: s.db} }

func (s *Store) Atomic(ctx context.Context, patient identity.Key, fn func(tx ledger.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, patient.Hex()); err != nil {
		return fmt.Errorf("lock patient: %w", err)
	}

	if err = fn(txRepos{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txRepos struct {
	tx *sql.Tx
}

func (t txRepos) Records() records.Repository         { return &RecordsRepo{q: t.tx} }
func (t txRepos) Permissions() permissions.Repository { return &PermissionsRepo{q: t.tx} }
func (t txRepos) Events() events.Repository           { return &EventsRepo{tx: t.tx} }
