package hnsw

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/hupe1980/vecstore/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed int64) func(o *Options) {
	return func(o *Options) { o.RandomSeed = &seed }
}

func items(vecs [][]float32) []Item {
	out := make([]Item, len(vecs))
	for i, v := range vecs {
		out[i] = Item{Label: uint32(i), Vector: v}
	}

	return out
}

func toResults(ns []Neighbor) []testutil.SearchResult {
	out := make([]testutil.SearchResult, len(ns))
	for i, n := range ns {
		out[i] = testutil.SearchResult{Label: n.Label, Distance: n.Distance}
	}

	return out
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h, err := New(8)
		require.NoError(t, err)

		assert.Equal(t, 8, h.Dimension())
		assert.Equal(t, DefaultCapacity, h.Capacity())
		assert.Equal(t, DefaultEF, h.EF())
		assert.Equal(t, 0, h.Len())

		opts := h.Options()
		assert.Equal(t, DefaultM, opts.M)
		assert.Equal(t, DefaultEFConstruction, opts.EFConstruction)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		_, err := New(0)

		var dimErr *ErrInvalidDimension
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("clamps m", func(t *testing.T) {
		h, err := New(4, func(o *Options) { o.M = 1 })
		require.NoError(t, err)

		assert.Equal(t, minimumM, h.Options().M)
	})
}

func TestSearchRecall(t *testing.T) {
	rng := testutil.NewRNG(4711)
	vecs := rng.UnitVectors(1000, 32)

	h, err := New(32, seeded(1))
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs)))
	require.Equal(t, 1000, h.Len())

	h.SetEF(100)

	queries := rng.UnitVectors(20, 32)

	var recall float64
	for _, q := range queries {
		got, err := h.Search(q, 10)
		require.NoError(t, err)
		require.Len(t, got, 10)

		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
		}

		recall += testutil.ComputeRecall(testutil.ExactTopK(q, vecs, 10), toResults(got))
	}

	assert.GreaterOrEqual(t, recall/float64(len(queries)), 0.9)
}

func TestSearchSelf(t *testing.T) {
	vecs := testutil.NewRNG(1).UnitVectors(300, 16)

	h, err := New(16, seeded(2))
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs)))

	hits := 0
	for i, v := range vecs {
		got, err := h.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)

		if got[0].Label == uint32(i) {
			hits++
		}
	}

	assert.GreaterOrEqual(t, hits, 297)
}

func TestSearchEdgeCases(t *testing.T) {
	h, err := New(4, seeded(3))
	require.NoError(t, err)

	t.Run("empty index", func(t *testing.T) {
		got, err := h.Search([]float32{1, 0, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	require.NoError(t, h.Insert([]Item{{Label: 1, Vector: []float32{1, 0, 0, 0}}}))

	t.Run("zero k", func(t *testing.T) {
		got, err := h.Search([]float32{1, 0, 0, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("k larger than count", func(t *testing.T) {
		got, err := h.Search([]float32{1, 0, 0, 0}, 5)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := h.Search([]float32{1, 0}, 5)

		var dimErr *ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 4, dimErr.Expected)
		assert.Equal(t, 2, dimErr.Actual)
	})
}

func TestSearchReturnsKWithSmallEF(t *testing.T) {
	vecs := testutil.NewRNG(9).UnitVectors(50, 8)

	h, err := New(8, seeded(4), func(o *Options) { o.EF = 10 })
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs)))

	got, err := h.Search(vecs[0], 15)
	require.NoError(t, err)
	assert.Len(t, got, 15)

	seen := make(map[uint32]bool)
	for _, n := range got {
		assert.False(t, seen[n.Label], "duplicate label %d", n.Label)
		seen[n.Label] = true
	}
}

func TestTieBreak(t *testing.T) {
	h, err := New(3, seeded(5))
	require.NoError(t, err)

	v := []float32{0, 1, 0}
	require.NoError(t, h.Insert([]Item{
		{Label: 9, Vector: v},
		{Label: 5, Vector: v},
		{Label: 7, Vector: v},
		{Label: 3, Vector: []float32{1, 0, 0}},
	}))

	got, err := h.Search(v, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, []uint32{5, 7, 9, 3}, []uint32{got[0].Label, got[1].Label, got[2].Label, got[3].Label})
}

func TestCapacity(t *testing.T) {
	vecs := testutil.NewRNG(11).UnitVectors(12, 4)

	h, err := New(4, seeded(6), func(o *Options) { o.Capacity = 10 })
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs[:8])))

	t.Run("batch rejected atomically", func(t *testing.T) {
		err := h.Insert([]Item{
			{Label: 8, Vector: vecs[8]},
			{Label: 9, Vector: vecs[9]},
			{Label: 10, Vector: vecs[10]},
		})

		var capErr *ErrCapacityExceeded
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, 3, capErr.Requested)
		assert.Equal(t, 8, capErr.Current)
		assert.Equal(t, 10, capErr.Max)
		assert.True(t, errors.Is(err, ErrCapacity))
		assert.Equal(t, "cannot insert 3 elements. current: 8, max: 10", err.Error())

		assert.Equal(t, 8, h.Len())
		assert.False(t, h.Contains(8))
	})

	t.Run("existing labels do not count", func(t *testing.T) {
		require.NoError(t, h.Insert([]Item{
			{Label: 0, Vector: vecs[11]},
			{Label: 1, Vector: vecs[10]},
			{Label: 8, Vector: vecs[8]},
			{Label: 9, Vector: vecs[9]},
			{Label: 9, Vector: vecs[9]},
		}))
		assert.Equal(t, 10, h.Len())
	})

	t.Run("full", func(t *testing.T) {
		err := h.Insert([]Item{{Label: 100, Vector: vecs[0]}})

		var capErr *ErrCapacityExceeded
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, 1, capErr.Requested)
		assert.Equal(t, 10, capErr.Current)

		// Replacing is still allowed when full.
		require.NoError(t, h.Insert([]Item{{Label: 3, Vector: vecs[0]}}))
		assert.Equal(t, 10, h.Len())
	})
}

func TestInsertDimensionMismatchIsAtomic(t *testing.T) {
	h, err := New(4, seeded(7))
	require.NoError(t, err)

	err = h.Insert([]Item{
		{Label: 1, Vector: []float32{1, 0, 0, 0}},
		{Label: 2, Vector: []float32{1, 0}},
	})

	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 0, h.Len())
}

func TestNonFiniteVectors(t *testing.T) {
	h, err := New(4, seeded(8))
	require.NoError(t, err)
	require.NoError(t, h.Insert([]Item{{Label: 0, Vector: []float32{1, 0, 0, 0}}}))

	nan := float32(math.NaN())

	tests := []struct {
		name string
		vec  []float32
	}{
		{"nan", []float32{nan, nan, nan, nan}},
		{"one nan", []float32{1, nan, 0, 0}},
		{"inf", []float32{float32(math.Inf(1)), 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Insert([]Item{
				{Label: 1, Vector: []float32{0, 1, 0, 0}},
				{Label: 2, Vector: tt.vec},
			})
			require.ErrorIs(t, err, ErrNonFinite)
			assert.Equal(t, 1, h.Len())
			assert.False(t, h.Contains(1))

			_, err = h.Search(tt.vec, 1)
			assert.ErrorIs(t, err, ErrNonFinite)
		})
	}

	res, err := h.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(0), res[0].Label)
}

func TestReplace(t *testing.T) {
	vecs := testutil.NewRNG(13).UnitVectors(200, 16)

	h, err := New(16, seeded(8))
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs)))

	fresh := testutil.NewRNG(14).UnitVectors(50, 16)

	updates := make([]Item, len(fresh))
	for i, v := range fresh {
		updates[i] = Item{Label: uint32(i * 4), Vector: v}
	}
	require.NoError(t, h.Insert(updates))
	assert.Equal(t, 200, h.Len())

	hits := 0
	for _, u := range updates {
		stored, ok := h.Vector(u.Label)
		require.True(t, ok)
		assert.InDeltaSlice(t, u.Vector, stored, 1e-5)

		got, err := h.Search(u.Vector, 1)
		require.NoError(t, err)
		if got[0].Label == u.Label {
			hits++
		}
	}

	assert.GreaterOrEqual(t, hits, 48)
}

func TestNormalizesVectors(t *testing.T) {
	h, err := New(2, seeded(9))
	require.NoError(t, err)
	require.NoError(t, h.Insert([]Item{{Label: 1, Vector: []float32{3, 4}}}))

	v, ok := h.Vector(1)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, v, 1e-6)

	got, err := h.Search([]float32{30, 40}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
}

func TestSetEF(t *testing.T) {
	h, err := New(4)
	require.NoError(t, err)

	h.SetEF(200)
	assert.Equal(t, 200, h.EF())

	h.SetEF(0)
	assert.Equal(t, 200, h.EF())
}

func TestSaveLoad(t *testing.T) {
	rng := testutil.NewRNG(21)
	vecs := rng.UnitVectors(500, 24)

	h, err := New(24, seeded(10), func(o *Options) {
		o.M = 8
		o.EFConstruction = 64
		o.Capacity = 600
	})
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs)))
	h.SetEF(40)

	var buf bytes.Buffer
	require.NoError(t, h.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, h.Len(), loaded.Len())
	assert.Equal(t, 600, loaded.Capacity())
	assert.Equal(t, 40, loaded.EF())
	assert.Equal(t, 8, loaded.Options().M)
	assert.Equal(t, h.Labels(), loaded.Labels())
	assert.Equal(t, h.Stats(), loaded.Stats())

	for _, q := range rng.UnitVectors(10, 24) {
		want, err := h.Search(q, 10)
		require.NoError(t, err)

		got, err := loaded.Search(q, 10)
		require.NoError(t, err)

		assert.Equal(t, want, got)
	}

	t.Run("ef override", func(t *testing.T) {
		l, err := Load(bytes.NewReader(buf.Bytes()), func(o *Options) { o.EF = 7 })
		require.NoError(t, err)
		assert.Equal(t, 7, l.EF())
	})

	t.Run("empty graph", func(t *testing.T) {
		empty, err := New(3)
		require.NoError(t, err)

		var b bytes.Buffer
		require.NoError(t, empty.Save(&b))

		l, err := Load(&b)
		require.NoError(t, err)
		assert.Equal(t, 0, l.Len())
		assert.Equal(t, 3, l.Dimension())
	})
}

func TestLoadCorrupt(t *testing.T) {
	h, err := New(4, seeded(11))
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(testutil.NewRNG(1).UnitVectors(20, 4))))

	var buf bytes.Buffer
	require.NoError(t, h.Save(&buf))
	data := buf.Bytes()

	t.Run("garbage", func(t *testing.T) {
		_, err := Load(bytes.NewReader([]byte("definitely not a graph, but long enough for a header")))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Load(bytes.NewReader(data[:len(data)-3]))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Load(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestStats(t *testing.T) {
	h, err := New(8, seeded(12))
	require.NoError(t, err)

	s := h.Stats()
	assert.Equal(t, 0, s.Count)
	assert.Empty(t, s.Levels)

	require.NoError(t, h.Insert(items(testutil.NewRNG(3).UnitVectors(100, 8))))

	s = h.Stats()
	assert.Equal(t, 100, s.Count)
	assert.Equal(t, 32, s.Mmax0)
	require.NotEmpty(t, s.Levels)
	assert.Equal(t, 100, s.Levels[0].Nodes)
	assert.Greater(t, s.Levels[0].AvgConnections, 0.0)

	var out bytes.Buffer
	s.Print(&out)
	assert.Contains(t, out.String(), "Number of nodes = 100 of 1000000")
}

func TestConcurrentInsertSearch(t *testing.T) {
	rng := testutil.NewRNG(31)
	vecs := rng.UnitVectors(400, 8)

	h, err := New(8, seeded(13))
	require.NoError(t, err)
	require.NoError(t, h.Insert(items(vecs[:100])))

	var wg sync.WaitGroup

	for w := range 4 {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			for i := 100 + w; i < 400; i += 4 {
				assert.NoError(t, h.Insert([]Item{{Label: uint32(i), Vector: vecs[i]}}))
			}
		}(w)
	}

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				got, err := h.Search(vecs[i], 5)
				assert.NoError(t, err)
				assert.Len(t, got, 5)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 400, h.Len())
}
