package postgres

import (
	"context"
	"database/sql"
	"errors"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/permissions"
)

type PermissionsRepo struct {
	q querier
}

func NewPermissionsRepo(db *sql.DB) *PermissionsRepo {
	return &PermissionsRepo{q: db}
}

func (r *PermissionsRepo) Get(ctx context.Context, patient, doctor identity.Key) (permissions.Entry, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT patient, doctor, granted, granted_at, ordinal
		FROM permissions
		WHERE patient = $1 AND doctor = $2
	`, patient, doctor)

	var e permissions.Entry
	if err := row.Scan(&e.Patient, &e.Doctor, &e.Granted, &e.GrantedAt, &e.Ordinal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return permissions.Entry{}, permissions.ErrNotFound
		}
		return permissions.Entry{}, err
	}
	return e, nil
}

func (r *PermissionsRepo) Save(ctx context.Context, e permissions.Entry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO permissions (patient, doctor, granted, granted_at, ordinal)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (patient, doctor) DO UPDATE SET
			granted = EXCLUDED.granted,
			granted_at = EXCLUDED.granted_at,
			ordinal = EXCLUDED.ordinal
	`, e.Patient, e.Doctor, e.Granted, e.GrantedAt, e.Ordinal)
	return err
}

func (r *PermissionsRepo) ListByPatient(ctx context.Context, patient identity.Key) ([]permissions.Entry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT patient, doctor, granted, granted_at, ordinal
		FROM permissions
		WHERE patient = $1
		ORDER BY ordinal ASC
	`, patient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]permissions.Entry, 0)
	for rows.Next() {
		var e permissions.Entry
		if err := rows.Scan(&e.Patient, &e.Doctor, &e.Granted, &e.GrantedAt, &e.Ordinal); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
