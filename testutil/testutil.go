package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/vecstore/distance"
)

// SearchResult is a label with its distance to a query.
type SearchResult struct {
	Label    uint32
	Distance float32
}

// RNG is a seeded generator for test vectors. Safe for concurrent use.
type RNG struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewRNG returns an RNG seeded with seed. Equal seeds give equal sequences.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewSource(seed))} // nolint gosec
}

// UnitVectors returns num random vectors of length one. Components are
// Gaussian, so directions are uniform on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float32, num)

	for i := range vectors {
		vec := make([]float32, dimensions)

		var sq float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			sq += v * v
		}

		if sq == 0 {
			vec[0], sq = 1, 1
		}

		scale := float32(1 / math.Sqrt(sq))
		for j := range vec {
			vec[j] *= scale
		}

		vectors[i] = vec
	}

	return vectors
}

// ExactTopK scans vectors linearly and returns the k nearest by cosine
// distance, label i being vectors[i]. Ties go to the smaller label.
func ExactTopK(query []float32, vectors [][]float32, k int) []SearchResult {
	q := distance.NormalizeL2Copy(query)

	all := make([]SearchResult, len(vectors))
	for i, v := range vectors {
		all[i] = SearchResult{Label: uint32(i), Distance: distance.Cosine(q, distance.NormalizeL2Copy(v))}
	}

	slices.SortFunc(all, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}

		return cmp.Compare(a.Label, b.Label)
	})

	return all[:min(k, len(all))]
}

// ComputeRecall returns the share of the first k approximate labels that
// also appear in the first k ground truth labels, k being the shorter length.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	k := min(len(approximate), len(groundTruth))
	if k == 0 {
		if len(groundTruth) == len(approximate) {
			return 1
		}

		return 0
	}

	want := make(map[uint32]struct{}, k)
	for _, r := range groundTruth[:k] {
		want[r.Label] = struct{}{}
	}

	hits := 0

	for _, r := range approximate[:k] {
		if _, ok := want[r.Label]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
