package memory

import (
	"context"
	"sort"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/permissions"
)

type permissionRepo struct {
	s  *Store
	tx *tx
}

func (r *permissionRepo) Get(ctx context.Context, patient, doctor identity.Key) (permissions.Entry, error) {
	if r.tx != nil {
		if e, ok := r.tx.perms[pairKey{patient, doctor}]; ok {
			return e, nil
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.perms[patient][doctor]
	if !ok {
		return permissions.Entry{}, permissions.ErrNotFound
	}
	return e, nil
}

func (r *permissionRepo) Save(ctx context.Context, e permissions.Entry) error {
	if r.tx != nil {
		r.tx.perms[pairKey{e.Patient, e.Doctor}] = e
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.putPermissionLocked(e.Patient, e)
	return nil
}

func (r *permissionRepo) ListByPatient(ctx context.Context, patient identity.Key) ([]permissions.Entry, error) {
	merged := make(map[identity.Key]permissions.Entry)

	r.s.mu.RLock()
	for doctor, e := range r.s.perms[patient] {
		merged[doctor] = e
	}
	r.s.mu.RUnlock()

	if r.tx != nil {
		for k, e := range r.tx.perms {
			if k.patient == patient {
				merged[k.doctor] = e
			}
		}
	}

	out := make([]permissions.Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ordinal < out[j].Ordinal
	})
	return out, nil
}
