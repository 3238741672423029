package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt verifier not configured")
	ErrTokenEmpty    = errors.New("token is empty")
)

type Config struct {
	Secret string
	Issuer string // opcional; si viene, se exige en el token
}

// Verifier implementa auth.AuthVerifier con tokens HS256 cuyo sub es la dirección del caller.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrNotConfigured
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.Issuer),
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrUnauthorized, err)
	}

	addr, err := identity.Parse(claims.Subject)
	if err != nil || addr.IsZero() {
		return auth.Claims{}, fmt.Errorf("%w: sub is not an address", auth.ErrUnauthorized)
	}

	return auth.Claims{
		Address: addr,
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}, nil
}

// Issue firma un token para addr. Lo usan tests y herramientas de dev.
func (v *Verifier) Issue(addr identity.Key, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   addr.String(),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
