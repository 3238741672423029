package postgres

import (
	"context"
	"database/sql"
	"errors"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/records"
)

type RecordsRepo struct {
	q querier
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{q: db}
}

func (r *RecordsRepo) Get(ctx context.Context, owner identity.Key) (records.MedicalRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT owner, name, age, medical_history, document_ref, created_at, updated_at
		FROM medical_records
		WHERE owner = $1
	`, owner)

	var rec records.MedicalRecord
	if err := row.Scan(
		&rec.Owner,
		&rec.Name,
		&rec.Age,
		&rec.MedicalHistory,
		&rec.DocumentRef,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.MedicalRecord{}, records.ErrNotFound
		}
		return records.MedicalRecord{}, err
	}
	return rec, nil
}

func (r *RecordsRepo) Save(ctx context.Context, rec records.MedicalRecord) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO medical_records (owner, name, age, medical_history, document_ref, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (owner) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			medical_history = EXCLUDED.medical_history,
			document_ref = EXCLUDED.document_ref,
			updated_at = EXCLUDED.updated_at
	`,
		rec.Owner,
		rec.Name,
		rec.Age,
		rec.MedicalHistory,
		rec.DocumentRef,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}
