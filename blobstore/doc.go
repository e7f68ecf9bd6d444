// Package blobstore provides the durable storage abstraction snapshots are
// written to.
//
// A BlobStore holds named, immutable blobs. Put replaces a blob atomically:
// readers observe either the previous or the new content, never a mix.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local filesystem (temp file + rename)
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
