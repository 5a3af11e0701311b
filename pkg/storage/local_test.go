package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLocalBackend(t *testing.T) *LocalBackend {
	t.Helper()

	b, err := NewLocalBackend(t.TempDir(), "http://localhost:8080", NewSignedURLSigner("secret"))
	require.NoError(t, err)
	return b
}

func TestLocalBackendStoreRetrieve(t *testing.T) {
	b := newTestLocalBackend(t)
	ctx := context.Background()

	path, err := b.Store(ctx, strings.NewReader("hello"), 5, "u1/conversations/c1/hello.txt", "text/plain")
	require.NoError(t, err)
	require.Equal(t, "u1/conversations/c1/hello.txt", path)

	rc, err := b.Retrieve(ctx, path)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	exists, err := b.Exists(ctx, path)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestLocalBackendRetrieveMissing(t *testing.T) {
	b := newTestLocalBackend(t)

	_, err := b.Retrieve(context.Background(), "u1/missing.txt")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalBackendSizeMismatch(t *testing.T) {
	b := newTestLocalBackend(t)

	_, err := b.Store(context.Background(), strings.NewReader("hello"), 10, "u1/hello.txt", "text/plain")
	require.Error(t, err)

	exists, err := b.Exists(context.Background(), "u1/hello.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLocalBackendDelete(t *testing.T) {
	b := newTestLocalBackend(t)
	ctx := context.Background()

	_, err := b.Store(ctx, strings.NewReader("x"), 1, "u1/x.txt", "text/plain")
	require.NoError(t, err)

	existed, err := b.Delete(ctx, "u1/x.txt")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = b.Delete(ctx, "u1/x.txt")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestLocalBackendRejectsEscapingPath(t *testing.T) {
	b := newTestLocalBackend(t)

	_, err := b.Store(context.Background(), strings.NewReader("x"), 1, "../../etc/passwd", "text/plain")
	require.Error(t, err)
}

func TestLocalBackendPresignedURL(t *testing.T) {
	b := newTestLocalBackend(t)

	u, err := b.PresignedURL(context.Background(), "u1/x.txt", time.Minute, "")
	require.NoError(t, err)
	require.Contains(t, u, "http://localhost:8080/api/v1/files?token=")
	require.NotContains(t, u, "disposition")
}

func TestLocalBackendPresignedURLCarriesDisposition(t *testing.T) {
	b := newTestLocalBackend(t)

	u, err := b.PresignedURL(context.Background(), "u1/x.txt", time.Minute, DispositionInline)
	require.NoError(t, err)
	require.Contains(t, u, "&disposition=inline")
}
