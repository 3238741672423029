package permissions

import (
	"time"

	"medical-access-ledger/internal/domain/identity"
)

type State string

const (
	StateNoRelation State = "no_relation"
	StateGranted    State = "granted"
	StateRevoked    State = "revoked"
)

// Entry es el estado de acceso de un médico sobre el registro de un paciente.
// Una entry revocada se conserva: GrantedAt refleja la última transición.
type Entry struct {
	Patient identity.Key
	Doctor  identity.Key

	Granted   bool
	GrantedAt time.Time

	// Ordinal ordena la lista de médicos autorizados (orden de grant).
	// Se asigna de nuevo en cada transición a granted.
	Ordinal uint64
}

func (e Entry) State() State {
	if e.Granted {
		return StateGranted
	}
	return StateRevoked
}
