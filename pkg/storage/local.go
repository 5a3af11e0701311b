package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend stores objects under a root directory on disk. Presigned
// downloads are served through the public files endpoint using HMAC
// tokens instead of cloud-native presigning.
type LocalBackend struct {
	root    string
	baseURL string
	signer  *SignedURLSigner
}

var _ Backend = (*LocalBackend)(nil)
var _ PresignedURLProvider = (*LocalBackend)(nil)

// NewLocalBackend prepares the root directory and wires the signer used
// for download tokens. baseURL is the externally visible server origin.
func NewLocalBackend(root, baseURL string, signer *SignedURLSigner) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local storage root: %w", err)
	}
	return &LocalBackend{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
	}, nil
}

// resolve maps an object path onto the root, rejecting escapes.
func (b *LocalBackend) resolve(path string) (string, error) {
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return "", fmt.Errorf("local storage: path %q escapes root", path)
		}
	}

	full := filepath.Join(b.root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, filepath.Clean(b.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("local storage: path %q escapes root", path)
	}
	return full, nil
}

func (b *LocalBackend) Store(ctx context.Context, r io.Reader, size int64, path, contentType string) (string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("local storage mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("local storage temp: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return "", fmt.Errorf("local storage write %s: %w", path, err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("local storage write %s: wrote %d of %d bytes", path, written, size)
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("local storage close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("local storage rename %s: %w", path, err)
	}

	return path, nil
}

func (b *LocalBackend) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("local storage open %s: %w", path, err)
	}
	return f, nil
}

func (b *LocalBackend) Delete(ctx context.Context, path string) (bool, error) {
	full, err := b.resolve(path)
	if err != nil {
		return false, err
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("local storage remove %s: %w", path, err)
	}
	return true, nil
}

func (b *LocalBackend) Exists(ctx context.Context, path string) (bool, error) {
	full, err := b.resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("local storage stat %s: %w", path, err)
	}
	return true, nil
}

// PresignedURL returns a tokenised download URL served by the files
// endpoint. The disposition rides along as a plain query parameter;
// only the object path is covered by the token.
func (b *LocalBackend) PresignedURL(ctx context.Context, path string, ttl time.Duration, disposition string) (string, error) {
	token := b.signer.Sign(path, ttl)
	u := fmt.Sprintf("%s/api/v1/files?token=%s", b.baseURL, url.QueryEscape(token))
	if disposition != "" {
		u += "&disposition=" + url.QueryEscape(disposition)
	}
	return u, nil
}
