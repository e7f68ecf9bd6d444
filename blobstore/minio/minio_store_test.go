package minio

import (
	"context"
	"testing"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	s := NewStore(nil, "bucket", "snapshots/")

	assert.Equal(t, "snapshots/ns_hnsw.snapshot", s.key("ns_hnsw.snapshot"))
	assert.Equal(t, "snapshots", s.key(""))
}

func TestDial(t *testing.T) {
	s, err := Dial(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", s.bucket)
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	store, err := Dial(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "test-vecstore",
		Prefix:    "test-prefix/",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err := store.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := store.client.BucketExists(ctx, store.bucket)
	require.NoError(t, err)

	if !exists {
		require.NoError(t, store.client.MakeBucket(ctx, store.bucket, minio.MakeBucketOptions{}))
	}

	require.NoError(t, store.Put(ctx, "ns_hnsw.snapshot", []byte("hello minio world")))

	data, err := blobstore.ReadAll(ctx, store, "ns_hnsw.snapshot")
	require.NoError(t, err)
	assert.Equal(t, "hello minio world", string(data))

	names, err := store.List(ctx, "ns_")
	require.NoError(t, err)
	assert.Contains(t, names, "ns_hnsw.snapshot")

	require.NoError(t, store.Delete(ctx, "ns_hnsw.snapshot"))

	_, err = store.Open(ctx, "ns_hnsw.snapshot")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
