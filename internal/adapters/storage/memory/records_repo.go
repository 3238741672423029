package memory

import (
	"context"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/records"
)

type recordRepo struct {
	s  *Store
	tx *tx // nil => escribe directo
}

func (r *recordRepo) Get(ctx context.Context, owner identity.Key) (records.MedicalRecord, error) {
	if r.tx != nil {
		if rec, ok := r.tx.records[owner]; ok {
			return rec, nil
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.records[owner]
	if !ok {
		return records.MedicalRecord{}, records.ErrNotFound
	}
	return rec, nil
}

func (r *recordRepo) Save(ctx context.Context, rec records.MedicalRecord) error {
	if rec.Owner.IsZero() {
		return records.ErrInvalidInput
	}
	if r.tx != nil {
		r.tx.records[rec.Owner] = rec
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.records[rec.Owner] = rec
	return nil
}
