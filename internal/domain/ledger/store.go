package ledger

import (
	"context"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"
)

// Repositories agrupa los tres repos del ledger.
type Repositories interface {
	Records() records.Repository
	Permissions() permissions.Repository
	Events() events.Repository
}

// Store es el puerto de storage del gateway.
//
// Atomic ejecuta fn con una vista transaccional: todo lo escrito por esa vista
// (registro, permiso y evento) se confirma junto o no se confirma. Si fn devuelve
// error no queda nada escrito. patient identifica la partición que se modifica;
// los backends pueden usarlo para serializar entre procesos.
type Store interface {
	Repositories
	Atomic(ctx context.Context, patient identity.Key, fn func(tx Repositories) error) error
}
