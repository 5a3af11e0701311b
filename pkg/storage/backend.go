package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Retrieve when the path has no object.
var ErrObjectNotFound = errors.New("storage: object not found")

// Backend abstracts the object store holding attachment content.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Store writes size bytes from r under path and returns the path.
	Store(ctx context.Context, r io.Reader, size int64, path, contentType string) (string, error)

	// Retrieve opens the object at path for reading. The caller owns the
	// returned ReadCloser.
	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. It reports whether an object
	// existed; deleting a missing object is not an error.
	Delete(ctx context.Context, path string) (bool, error)

	// Exists reports whether an object is stored under path.
	Exists(ctx context.Context, path string) (bool, error)
}

// Content-Disposition values accepted by download endpoints.
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// PresignedURLProvider is implemented by backends that can hand out
// time-limited direct download URLs. An empty disposition leaves the
// backend default in place.
type PresignedURLProvider interface {
	PresignedURL(ctx context.Context, path string, ttl time.Duration, disposition string) (string, error)
}

// PresignedUploader is implemented by backends that accept direct
// client uploads through a time-limited URL.
type PresignedUploader interface {
	PresignedUploadURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
