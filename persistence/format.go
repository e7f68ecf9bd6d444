package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies snapshot blobs (ASCII: "VST1").
	MagicNumber uint32 = 0x31545356
	// Version is the current snapshot format version.
	Version uint16 = 1

	// HeaderSize is the encoded size of Header.
	HeaderSize = 40

	sectionHeaderSize = 12
)

var (
	ErrInvalidMagic   = errors.New("persistence: invalid magic number")
	ErrInvalidVersion = errors.New("persistence: unsupported version")
	ErrTruncated      = errors.New("persistence: truncated snapshot")
	ErrMissingSection = errors.New("persistence: missing section")
)

// SectionKind identifies a payload section.
type SectionKind uint32

const (
	SectionManifest SectionKind = 1
	SectionRegistry SectionKind = 2
	SectionIndex    SectionKind = 3
	SectionMetadata SectionKind = 4
)

func (k SectionKind) String() string {
	switch k {
	case SectionManifest:
		return "manifest"
	case SectionRegistry:
		return "registry"
	case SectionIndex:
		return "index"
	case SectionMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("section(%d)", uint32(k))
	}
}

// Section is one named part of a snapshot payload.
type Section struct {
	Kind SectionKind
	Data []byte
}

// Header is the fixed-size prefix of every snapshot.
type Header struct {
	Magic        uint32
	Version      uint16
	Compression  Compression
	Flags        uint8
	SectionCount uint32
	PayloadSize  uint64 // uncompressed payload size
	StoredSize   uint64 // bytes following the header
	Checksum     uint32 // CRC32 (IEEE) of the uncompressed payload
	Reserved     [8]byte
}

// MarshalBinary encodes the header in little-endian order.
func (h Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)

	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ParseHeader decodes and validates the header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	var h Header

	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes, need %d for the header", ErrTruncated, len(data), HeaderSize)
	}

	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, err
	}

	if h.Magic != MagicNumber {
		return h, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}

	if h.Version != Version {
		return h, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}

	return h, nil
}

func encodeSections(sections []Section) []byte {
	size := 0
	for _, s := range sections {
		size += sectionHeaderSize + len(s.Data)
	}

	out := make([]byte, 0, size)
	for _, s := range sections {
		out = binary.LittleEndian.AppendUint32(out, uint32(s.Kind))
		out = binary.LittleEndian.AppendUint64(out, uint64(len(s.Data)))
		out = append(out, s.Data...)
	}

	return out
}

func decodeSections(payload []byte, count uint32) (map[SectionKind][]byte, error) {
	sections := make(map[SectionKind][]byte, count)

	for i := uint32(0); i < count; i++ {
		if len(payload) < sectionHeaderSize {
			return nil, fmt.Errorf("%w: section %d header", ErrTruncated, i)
		}

		kind := SectionKind(binary.LittleEndian.Uint32(payload))
		n := binary.LittleEndian.Uint64(payload[4:])
		payload = payload[sectionHeaderSize:]

		if uint64(len(payload)) < n {
			return nil, fmt.Errorf("%w: section %s wants %d bytes, %d left", ErrTruncated, kind, n, len(payload))
		}

		sections[kind] = payload[:n:n]
		payload = payload[n:]
	}

	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d sections", ErrTruncated, len(payload), count)
	}

	return sections, nil
}
