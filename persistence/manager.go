package persistence

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vecstore/blobstore"
)

// ErrNoSnapshot is returned by Load when no snapshot blob exists.
var ErrNoSnapshot = errors.New("persistence: no snapshot")

// Options configures the persistence manager.
type Options struct {
	// Compression applied to new snapshots. Loading detects it from the header.
	Compression Compression
}

// Snapshot is a decoded snapshot blob.
type Snapshot struct {
	Header   Header
	Sections map[SectionKind][]byte
}

// Section returns the data of kind.
func (s *Snapshot) Section(kind SectionKind) ([]byte, error) {
	data, ok := s.Sections[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, kind)
	}

	return data, nil
}

// Kinds returns the section kinds present, in ascending order.
func (s *Snapshot) Kinds() []SectionKind {
	kinds := make([]SectionKind, 0, len(s.Sections))
	for k := range s.Sections {
		kinds = append(kinds, k)
	}

	slices.Sort(kinds)

	return kinds
}

// Manager reads and writes snapshot blobs in a BlobStore.
//
// The Manager is thread-safe; serializing Save calls for one name is the
// caller's job.
type Manager struct {
	store blobstore.BlobStore
	opts  Options
}

// NewManager creates a new persistence manager with the given options.
func NewManager(store blobstore.BlobStore, optFns ...func(o *Options)) *Manager {
	opts := Options{Compression: CompressionNone}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{store: store, opts: opts}
}

// Save encodes sections into one blob and writes it atomically under name.
// It returns the number of bytes written.
func (m *Manager) Save(ctx context.Context, name string, sections []Section) (int64, error) {
	data, err := Encode(sections, m.opts.Compression)
	if err != nil {
		return 0, err
	}

	if err := m.store.Put(ctx, name, data); err != nil {
		return 0, fmt.Errorf("persistence: write %s: %w", name, err)
	}

	return int64(len(data)), nil
}

// Load reads and validates the snapshot stored under name.
func (m *Manager) Load(ctx context.Context, name string) (*Snapshot, error) {
	data, err := blobstore.ReadAll(ctx, m.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNoSnapshot
		}

		return nil, fmt.Errorf("persistence: read %s: %w", name, err)
	}

	return Decode(data)
}

// Exists reports whether a snapshot is stored under name.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	return blobstore.Exists(ctx, m.store, name)
}

// Delete removes the snapshot stored under name.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.store.Delete(ctx, name)
}

// Encode serializes sections into a snapshot blob.
func Encode(sections []Section, c Compression) ([]byte, error) {
	payload := encodeSections(sections)

	stored, used, err := compress(payload, c)
	if err != nil {
		return nil, fmt.Errorf("persistence: compress: %w", err)
	}

	hdr := Header{
		Magic:        MagicNumber,
		Version:      Version,
		Compression:  used,
		SectionCount: uint32(len(sections)),
		PayloadSize:  uint64(len(payload)),
		StoredSize:   uint64(len(stored)),
		Checksum:     ComputeChecksum(payload),
	}

	head, err := hdr.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return append(head, stored...), nil
}

// Decode parses and validates a snapshot blob.
func Decode(data []byte) (*Snapshot, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	stored := data[HeaderSize:]
	if uint64(len(stored)) != hdr.StoredSize {
		return nil, fmt.Errorf("%w: %d payload bytes, header says %d", ErrTruncated, len(stored), hdr.StoredSize)
	}

	payload, err := decompress(stored, hdr.Compression, hdr.PayloadSize)
	if err != nil {
		return nil, err
	}

	if err := VerifyChecksum(payload, hdr.Checksum); err != nil {
		return nil, err
	}

	sections, err := decodeSections(payload, hdr.SectionCount)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Header: hdr, Sections: sections}, nil
}
