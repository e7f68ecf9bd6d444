// Package queue provides the candidate heaps used by the graph search.
package queue

import "container/heap"

// Compile time check to ensure PriorityQueue satisfies the heap interface.
var _ heap.Interface = (*PriorityQueue)(nil)

// Item is a graph node together with its distance to the current query.
type Item struct {
	Node     uint32  // Node is the internal slot of the graph node.
	Distance float32 // Distance is the priority of the item in the queue.
}

// Less orders items by distance, then by node so equal distances have a
// stable order.
func Less(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}

	return a.Node < b.Node
}

// PriorityQueue implements heap.Interface and holds Items.
//
// With Max unset the queue is a min-heap (closest first); with Max set it is a
// max-heap (farthest first), which is what the bounded result set needs.
type PriorityQueue struct {
	Max   bool
	Items []Item
}

// NewMin returns an empty min-heap with room for capacity items.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{Items: make([]Item, 0, capacity)}
}

// NewMax returns an empty max-heap with room for capacity items.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{Max: true, Items: make([]Item, 0, capacity)}
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.Items) }

// Less reports whether the element with index i should sort before the element with index j.
func (pq *PriorityQueue) Less(i, j int) bool {
	if pq.Max {
		return Less(pq.Items[j], pq.Items[i])
	}

	return Less(pq.Items[i], pq.Items[j])
}

// Swap swaps the elements with indexes i and j.
func (pq *PriorityQueue) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
}

// Push implements heap.Interface. Use PushItem instead.
func (pq *PriorityQueue) Push(x any) {
	pq.Items = append(pq.Items, x.(Item))
}

// Pop implements heap.Interface. Use PopItem instead.
func (pq *PriorityQueue) Pop() any {
	n := len(pq.Items)
	item := pq.Items[n-1]
	pq.Items = pq.Items[:n-1]

	return item
}

// PushItem adds an item, keeping the heap invariant.
func (pq *PriorityQueue) PushItem(item Item) {
	heap.Push(pq, item)
}

// PopItem removes and returns the top item.
func (pq *PriorityQueue) PopItem() Item {
	return heap.Pop(pq).(Item)
}

// Top returns the top item without removing it. The queue must not be empty.
func (pq *PriorityQueue) Top() Item {
	return pq.Items[0]
}

// Reset empties the queue, keeping the allocated storage.
func (pq *PriorityQueue) Reset() {
	pq.Items = pq.Items[:0]
}

// Sorted drains the queue and returns its items ordered closest first.
func (pq *PriorityQueue) Sorted() []Item {
	out := make([]Item, pq.Len())
	if pq.Max {
		for i := len(out) - 1; i >= 0; i-- {
			out[i] = pq.PopItem()
		}
	} else {
		for i := range out {
			out[i] = pq.PopItem()
		}
	}

	return out
}
