package events

import (
	"time"

	"medical-access-ledger/internal/domain/identity"
)

// Event es una entrada inmutable del log. Sequence se asigna al hacer append.
type Event struct {
	Sequence uint64
	ID       string // referencia durable (uuid)

	Kind Kind

	Patient identity.Key
	Doctor  identity.Key // cero = ausente (RecordAdded)

	Timestamp time.Time
}

func (e Event) HasDoctor() bool {
	return !e.Doctor.IsZero()
}
