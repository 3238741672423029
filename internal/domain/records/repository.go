package records

import (
	"context"

	"medical-access-ledger/internal/domain/identity"
)

// Repository guarda a lo sumo un registro por owner.
// Get debe devolver ErrNotFound (envuelto o no) cuando no hay registro.
type Repository interface {
	Get(ctx context.Context, owner identity.Key) (MedicalRecord, error)
	Save(ctx context.Context, r MedicalRecord) error
}
