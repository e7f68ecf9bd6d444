package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Some items and their priorities.
var distances = []float32{0.4, 9, 0.001, 0.0534, 0.234, 2.03, 2.042, 2.532, 1.0009, 0.329, 0.193, 0.999, 0.020391, 2.0991, 1.203, 10.03, 1.039, 1.0008, 5.029, 0.789}

func fill(pq *PriorityQueue) {
	for k, d := range distances {
		pq.PushItem(Item{Node: uint32(k), Distance: d})
	}
}

func TestMaxValidation(t *testing.T) {
	pq := NewMax(len(distances))
	fill(pq)

	top := pq.Top()
	assert.Equal(t, float32(10.03), top.Distance)
	assert.Equal(t, uint32(15), top.Node)
	assert.Equal(t, 20, pq.Len())

	for pq.Len() > 10 {
		pq.PopItem()
	}

	top = pq.Top()
	assert.Equal(t, float32(1.0008), top.Distance)
	assert.Equal(t, uint32(17), top.Node)

	for pq.Len() > 1 {
		pq.PopItem()
	}

	assert.Equal(t, float32(0.001), pq.Top().Distance)
	assert.Equal(t, uint32(2), pq.Top().Node)
}

func TestMinValidation(t *testing.T) {
	pq := NewMin(len(distances))
	fill(pq)

	top := pq.Top()
	assert.Equal(t, float32(0.001), top.Distance)
	assert.Equal(t, uint32(2), top.Node)

	for pq.Len() > 10 {
		pq.PopItem()
	}

	top = pq.Top()
	assert.Equal(t, float32(1.0009), top.Distance)
	assert.Equal(t, uint32(8), top.Node)

	for pq.Len() > 1 {
		pq.PopItem()
	}

	assert.Equal(t, float32(10.03), pq.Top().Distance)
	assert.Equal(t, uint32(15), pq.Top().Node)
}

func TestTieBreak(t *testing.T) {
	pq := NewMin(4)
	pq.PushItem(Item{Node: 7, Distance: 0.5})
	pq.PushItem(Item{Node: 3, Distance: 0.5})
	pq.PushItem(Item{Node: 5, Distance: 0.5})

	assert.Equal(t, uint32(3), pq.PopItem().Node)
	assert.Equal(t, uint32(5), pq.PopItem().Node)
	assert.Equal(t, uint32(7), pq.PopItem().Node)

	maxQ := NewMax(4)
	maxQ.PushItem(Item{Node: 7, Distance: 0.5})
	maxQ.PushItem(Item{Node: 3, Distance: 0.5})

	assert.Equal(t, uint32(7), maxQ.Top().Node, "max-heap evicts the larger node first on ties")
}

func TestSorted(t *testing.T) {
	for _, pq := range []*PriorityQueue{NewMin(0), NewMax(0)} {
		fill(pq)

		sorted := pq.Sorted()
		require.Len(t, sorted, len(distances))
		assert.Equal(t, 0, pq.Len())

		for i := 1; i < len(sorted); i++ {
			assert.True(t, Less(sorted[i-1], sorted[i]), "items must be ascending")
		}
	}
}

func TestReset(t *testing.T) {
	pq := NewMin(8)
	fill(pq)
	pq.Reset()

	assert.Equal(t, 0, pq.Len())
	assert.GreaterOrEqual(t, cap(pq.Items), 8)
}
