package events

import (
	"context"

	"medical-access-ledger/internal/domain/identity"
)

type Repository interface {
	// Append asigna la siguiente Sequence (estrictamente creciente, desde 1) y guarda.
	Append(ctx context.Context, e Event) (Event, error)

	// Recent devuelve hasta limit eventos, el más nuevo primero.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Range devuelve hasta limit eventos con from <= Sequence <= to, ascendente.
	Range(ctx context.Context, from, to uint64, limit int) ([]Event, error)

	// ListByPatient devuelve hasta limit eventos del paciente, el más nuevo primero.
	ListByPatient(ctx context.Context, patient identity.Key, limit int) ([]Event, error)
}
