package distance

import (
	"fmt"
	"math"
	"slices"
)

const (
	// MinCosine is the smallest cosine distance (identical direction).
	MinCosine = 0
	// MaxCosine is the largest cosine distance (opposite direction).
	MaxCosine = 2
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32

	n := len(a)
	i := 0

	// Four independent accumulators; the summation order is fixed so the
	// result is reproducible across runs and after a snapshot reload.
	var s0, s1, s2, s3 float32
	for ; i+4 <= n; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}

	for ; i < n; i++ {
		sum += a[i] * b[i]
	}

	return sum + (s0 + s1) + (s2 + s3)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return sum
}

// IsFinite reports whether every component of v is neither NaN nor infinite.
func IsFinite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}

	return true
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm, in which case v is left untouched.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}

	norm := Norm(v)
	if norm == 0 || math.IsNaN(float64(norm)) || math.IsInf(float64(norm), 0) {
		return false
	}

	inv := 1 / norm
	for i := range v {
		v[i] *= inv
	}

	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// A zero vector is returned as an unmodified copy.
func NormalizeL2Copy(src []float32) []float32 {
	dst := slices.Clone(src)
	NormalizeL2InPlace(dst)

	return dst
}

// Cosine returns 1 - dot(a, b) for L2-normalized vectors, clamped to
// [MinCosine, MaxCosine] so float rounding can never leave the range.
func Cosine(a, b []float32) float32 {
	return Clamp(1 - Dot(a, b))
}

// Clamp bounds a cosine distance to [MinCosine, MaxCosine]. NaN maps to
// MaxCosine so an undefined distance never ranks as a match.
func Clamp(d float32) float32 {
	switch {
	case math.IsNaN(float64(d)) || d > MaxCosine:
		return MaxCosine
	case d < MinCosine:
		return MinCosine
	default:
		return d
	}
}

// Similarity converts a cosine distance into a score in [0, 1] using
// similarity = 1 - distance. Anti-correlated vectors (distance > 1) score 0.
func Similarity(d float32) float32 {
	s := 1 - d
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// Metric represents the distance metric used for vector comparison.
type Metric uint8

const (
	MetricCosine Metric = iota
	MetricL2
)

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "Cosine"
	case MetricL2:
		return "L2"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCosine:
		return Cosine, nil
	case MetricL2:
		return SquaredL2, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
