// Package persistence reads and writes namespace snapshots.
//
// A snapshot is a single blob:
//
//	[Header: 40 bytes][Payload: StoredSize bytes]
//
// The payload is a sequence of sections, optionally compressed as a whole
// with LZ4 or ZSTD:
//
//	[Kind: 4 bytes][Length: 8 bytes][Data: Length bytes]...
//
// The header carries a CRC32 of the uncompressed payload. Snapshots are
// written with a single atomic BlobStore.Put, so a reader sees either the
// previous snapshot or the new one.
package persistence
