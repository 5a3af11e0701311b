package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret")

	token := signer.Sign("u1/conversations/c1/2026/08/29/abcd1234_report.pdf", time.Minute)

	path, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1/conversations/c1/2026/08/29/abcd1234_report.pdf", path)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("test-secret")

	token := signer.Sign("u1/file.txt", -time.Minute)

	_, err := signer.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSignedURLSignerTampered(t *testing.T) {
	signer := NewSignedURLSigner("test-secret")
	other := NewSignedURLSigner("other-secret")

	token := other.Sign("u1/file.txt", time.Minute)

	_, err := signer.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignedURLSignerGarbage(t *testing.T) {
	signer := NewSignedURLSigner("test-secret")

	_, err := signer.Verify("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}
