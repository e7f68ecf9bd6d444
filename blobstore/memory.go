package blobstore

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
)

var _ BlobStore = (*MemoryStore)(nil)

// MemoryStore keeps blobs in a map. Stored bytes are private copies, so
// callers may reuse their buffers. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	puts  int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

// Open returns a read handle on a snapshot of the named blob.
func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return &memoryBlob{r: bytes.NewReader(data)}, nil
}

// Put stores a copy of data under name, replacing any previous blob.
func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	blob := bytes.Clone(data)

	m.mu.Lock()
	m.blobs[name] = blob
	m.puts++
	m.mu.Unlock()

	return nil
}

// Delete removes name. Missing blobs are ignored.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()

	return nil
}

// List returns the sorted names starting with prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	all := slices.Sorted(maps.Keys(m.blobs))
	m.mu.RUnlock()

	return slices.DeleteFunc(all, func(name string) bool {
		return !strings.HasPrefix(name, prefix)
	}), nil
}

// Puts returns how many times Put was called.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.puts
}

// Corrupt flips the byte at off of the named blob and reports whether it
// existed. Tests use it to exercise checksum validation.
func (m *MemoryStore) Corrupt(name string, off int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[name]
	if !ok || off < 0 || off >= len(data) {
		return false
	}

	// Replace rather than mutate: open handles keep seeing the old bytes.
	corrupted := bytes.Clone(data)
	corrupted[off] ^= 0xff
	m.blobs[name] = corrupted

	return true
}

type memoryBlob struct {
	r *bytes.Reader
}

func (b *memoryBlob) Close() error { return nil }

func (b *memoryBlob) Size() int64 { return b.r.Size() }

func (b *memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	size := b.r.Size()
	if off >= size || length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	return io.NopCloser(io.NewSectionReader(b.r, off, min(length, size-off))), nil
}
