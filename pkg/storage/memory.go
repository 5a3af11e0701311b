package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryBackend keeps objects in a map. Intended for tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailStore, when set, makes Store return this error. Lets tests
	// exercise storage failure paths.
	FailStore error
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (b *MemoryBackend) Store(ctx context.Context, r io.Reader, size int64, path, contentType string) (string, error) {
	if b.FailStore != nil {
		return "", b.FailStore
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("memory storage: read %d of %d bytes", len(data), size)
	}

	b.mu.Lock()
	b.objects[path] = data
	b.mu.Unlock()

	return path, nil
}

func (b *MemoryBackend) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	b.mu.RLock()
	data, ok := b.objects[path]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *MemoryBackend) Delete(ctx context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[path]; !ok {
		return false, nil
	}
	delete(b.objects, path)
	return true, nil
}

func (b *MemoryBackend) Exists(ctx context.Context, path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.objects[path]
	return ok, nil
}

// Len reports the number of stored objects.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
