// Package vecstore is a persistent, bounded-capacity vector store.
//
// A Store serves one namespace: an identifier registry, an HNSW graph index
// and a metadata overlay, persisted together as a single snapshot blob.
// Texts are turned into vectors by a caller-supplied Embedder.
//
// # Quick Start
//
//	store, err := vecstore.Open(ctx, embedder,
//		vecstore.WithNamespace("chunks"),
//		vecstore.WithWorkingDir("./data"),
//		vecstore.WithCapacity(100_000),
//		vecstore.WithMetaFields("entity_name"),
//	)
//	if err != nil {
//		return err
//	}
//	defer store.Close(ctx)
//
//	err = store.Upsert(ctx, map[string]vecstore.Record{
//		"1": {Content: "Alice likes apples", Metadata: map[string]string{"entity_name": "Alice"}},
//		"2": {Content: "Bob rides bikes", Metadata: map[string]string{"entity_name": "Bob"}},
//	})
//
//	results, err := store.Query(ctx, "apples", 1)
//
//	// Changes survive a restart only after Flush.
//	err = store.Flush(ctx)
//
// # Upsert
//
// Upserting a known identifier replaces its vector and metadata and keeps its
// label. A batch that would push the number of identifiers past the capacity
// is rejected as a whole with *ErrCapacityExceeded.
//
// # Persistence
//
// Snapshots are written to a blobstore.BlobStore, by default a local working
// directory. The blobstore/s3 and blobstore/minio packages provide remote
// stores. A snapshot carries the graph parameters, so reopening a namespace
// restores capacity, M and the metric regardless of the options passed.
//
// # Concurrency
//
// A Store is safe for concurrent use. Queries run in parallel; upserts and
// flushes are serialized.
package vecstore
