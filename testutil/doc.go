// Package testutil provides testing utilities for vecstore.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// nearest neighbors, verifying search recall and fake embedders.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 64)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.ExactTopK(query, vecs, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, approx)
//
// # Embedders
//
//	emb := testutil.NewHashEmbedder(64)
//	vecs, err := emb.Embed(ctx, []string{"alice likes apples"})
package testutil
