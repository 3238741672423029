package auth

import "medical-access-ledger/internal/domain/identity"

// Claims representa la identidad ya verificada de quien llama.
// El ledger solo ve Address; el resto es contexto para logs.
type Claims struct {
	Address identity.Key
	Subject string // sub original del token (puede coincidir con Address)
	Issuer  string
}
