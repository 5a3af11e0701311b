package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("secret")

	token, err := v.IssueToken("u1", "u1@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "u1@example.com", claims.Email)
}

func TestVerifierRejectsExpired(t *testing.T) {
	v := NewVerifier("secret")

	token, err := v.IssueToken("u1", "", -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	require.Error(t, err)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	v := NewVerifier("secret")
	other := NewVerifier("other")

	token, err := other.IssueToken("u1", "", time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	require.Error(t, err)
}

func TestVerifierRejectsGarbage(t *testing.T) {
	v := NewVerifier("secret")

	_, err := v.ValidateToken("not-a-token")
	require.Error(t, err)
}
