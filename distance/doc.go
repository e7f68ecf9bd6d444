// Package distance provides the vector kernels used by the graph index.
//
// # Supported Metrics
//
//   - MetricCosine: 1 - cosine similarity of L2-normalized vectors, in [0, 2]
//   - MetricL2: squared Euclidean distance
//
// # Usage
//
//	v := distance.NormalizeL2Copy(vec)
//	d := distance.Cosine(v, w)
//	sim := distance.Similarity(d)
package distance
