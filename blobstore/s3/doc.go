// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("snapshots/"), s3.WithRegion("eu-central-1"))
//	if err != nil {
//	    return err
//	}
//
//	st, err := vecstore.Open(ctx, embedder, vecstore.WithBlobStore(store))
//
// S3 object writes are atomic, so a snapshot Put never exposes a partial blob.
// Large snapshots are uploaded in parts by the SDK upload manager.
package s3
