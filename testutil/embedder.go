package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ErrEmbed is returned by FailingEmbedder.
var ErrEmbed = errors.New("embedding backend unavailable")

// HashEmbedder is a deterministic bag-of-words embedder. Every lower-cased
// token is hashed into one of Dim buckets, so texts sharing words end up
// close under cosine distance. It never calls out to a model.
type HashEmbedder struct {
	dim   int
	calls atomic.Int64
	texts atomic.Int64
}

// NewHashEmbedder returns a HashEmbedder producing dim-dimensional vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector dimension.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Calls returns how many times Embed was called.
func (e *HashEmbedder) Calls() int { return int(e.calls.Load()) }

// Texts returns how many texts were embedded in total.
func (e *HashEmbedder) Texts() int { return int(e.texts.Load()) }

// Embed embeds every text; the result has one vector per input.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.calls.Add(1)
	e.texts.Add(int64(len(texts)))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}

	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)

	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := xxhash.Sum64String(tok)
		vec[h%uint64(e.dim)] += 1
	}

	// Keep empty texts away from the zero vector.
	if strings.TrimSpace(text) == "" {
		vec[0] = 1
	}

	return vec
}

// StaticEmbedder returns fixed vectors keyed by text and a default vector
// for unknown texts.
type StaticEmbedder struct {
	Dim     int
	Vectors map[string][]float32
	Default []float32

	mu sync.Mutex
}

// Dimension returns the vector dimension.
func (e *StaticEmbedder) Dimension() int { return e.Dim }

// Embed looks every text up in Vectors.
func (e *StaticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.Vectors[text]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}

		out[i] = append([]float32(nil), e.Default...)
	}

	return out, nil
}

// FailingEmbedder always fails with Err, or ErrEmbed when Err is nil.
type FailingEmbedder struct {
	Dim int
	Err error
}

// Dimension returns the vector dimension.
func (e *FailingEmbedder) Dimension() int { return e.Dim }

// Embed always returns an error.
func (e *FailingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}

	return nil, ErrEmbed
}

// ShortEmbedder drops the last vector of every batch, simulating a backend
// that returns fewer vectors than requested.
type ShortEmbedder struct {
	*HashEmbedder
}

// Embed embeds texts and returns one vector fewer than requested.
func (e ShortEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.HashEmbedder.Embed(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}

	return out[:len(out)-1], nil
}
