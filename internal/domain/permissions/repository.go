package permissions

import (
	"context"

	"medical-access-ledger/internal/domain/identity"
)

type Repository interface {
	// Get devuelve ErrNotFound si nunca hubo relación para el par.
	Get(ctx context.Context, patient, doctor identity.Key) (Entry, error)
	Save(ctx context.Context, e Entry) error
	// ListByPatient devuelve todas las entries del paciente (incluye revocadas), por Ordinal asc.
	ListByPatient(ctx context.Context, patient identity.Key) ([]Entry, error)
}
