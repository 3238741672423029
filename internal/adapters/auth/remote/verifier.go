package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/ports/auth"
)

var (
	ErrTokenEmpty = errors.New("token is empty")
)

// Verifier implementa auth.AuthVerifier delegando en el servicio de identidad.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	s, err := v.client.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrUnauthorized, err)
		}
		return auth.Claims{}, fmt.Errorf("identity verify failed: %w", err)
	}

	addr, err := identity.Parse(s.Address)
	if err != nil || addr.IsZero() {
		return auth.Claims{}, fmt.Errorf("%w: session has no valid address", auth.ErrUnauthorized)
	}

	return auth.Claims{
		Address: addr,
		Subject: strings.TrimSpace(s.SessionID),
		Issuer:  strings.TrimSpace(s.Issuer),
	}, nil
}
