package records

import (
	"time"

	"medical-access-ledger/internal/domain/identity"
)

const (
	MinAge = 1
	MaxAge = 149
)

// MedicalRecord es el registro único de un paciente.
type MedicalRecord struct {
	Owner identity.Key // inmutable

	Name           string
	Age            int
	MedicalHistory string
	DocumentRef    string // hash de contenido en el blob store externo; vacío = sin documento

	CreatedAt time.Time
	UpdatedAt time.Time // nunca retrocede para un mismo owner
}

func (r MedicalRecord) HasDocument() bool {
	return r.DocumentRef != ""
}
