package vecstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vecstore/distance"
	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimension of every vector Embed returns.
	Dimension() int
}

type embedderFunc struct {
	dim int
	fn  func(ctx context.Context, texts []string) ([][]float32, error)
}

func (e embedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.fn(ctx, texts)
}

func (e embedderFunc) Dimension() int { return e.dim }

// EmbedderFunc adapts a plain function producing dim-dimensional vectors.
func EmbedderFunc(dim int, fn func(ctx context.Context, texts []string) ([][]float32, error)) Embedder {
	return embedderFunc{dim: dim, fn: fn}
}

// embed embeds texts in batches. Batches run concurrently up to the
// configured limit and are throttled by the resource controller. Any failure,
// a short answer or a vector of the wrong dimension or with non-finite
// components fails the whole call.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	batch := max(s.opts.embedBatchSize, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.opts.embedConcurrency, 1))

	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))

		g.Go(func() error {
			release, err := s.throttle.Acquire(gctx, int64(end-start))
			if err != nil {
				return err
			}
			defer release()

			begin := time.Now()
			vecs, err := s.embedder.Embed(gctx, texts[start:end])
			s.metrics.RecordEmbed(end-start, time.Since(begin), err)

			if err != nil {
				return err
			}

			if len(vecs) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
			}

			for i, v := range vecs {
				if len(v) != s.dimension {
					return &ErrDimensionMismatch{Expected: s.dimension, Actual: len(v)}
				}

				if !distance.IsFinite(v) {
					return fmt.Errorf("%w: text %d", ErrNonFinite, start+i)
				}

				out[start+i] = v
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &ErrEmbedding{Count: len(texts), Cause: err}
	}

	return out, nil
}
