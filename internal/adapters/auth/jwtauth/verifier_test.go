package jwtauth

import (
	"context"
	"testing"
	"time"

	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patient = identity.MustParse("0x00000000000000000000000000000000000000a1")

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier(Config{Secret: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := NewVerifier(Config{Secret: "s3cret", Issuer: "ledger-dev"})
	require.NoError(t, err)

	token, err := v.Issue(patient, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, patient, claims.Address)
	assert.Equal(t, "ledger-dev", claims.Issuer)
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := NewVerifier(Config{Secret: "s3cret", Issuer: "ledger-dev"})
	require.NoError(t, err)
	other, err := NewVerifier(Config{Secret: "another", Issuer: "ledger-dev"})
	require.NoError(t, err)
	wrongIssuer, err := NewVerifier(Config{Secret: "s3cret", Issuer: "someone-else"})
	require.NoError(t, err)

	expired, err := v.Issue(patient, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.Issue(patient, time.Minute)
	require.NoError(t, err)
	badIssuer, err := wrongIssuer.Issue(patient, time.Minute)
	require.NoError(t, err)

	notAddress, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "jane",
		Issuer:    "ledger-dev",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"wrong issuer": badIssuer,
		"sub not addr": notAddress,
		"not a jwt":    "abc.def",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, auth.ErrUnauthorized)
		})
	}

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrTokenEmpty)
}
