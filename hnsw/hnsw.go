// Package hnsw implements a fixed-capacity Hierarchical Navigable Small World
// graph for approximate nearest neighbor search over labelled vectors.
package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/vecstore/distance"
	"github.com/hupe1980/vecstore/queue"
)

const (
	// DefaultM is the default number of bidirectional links per node.
	DefaultM = 16

	// DefaultEFConstruction is the default candidate list size during insertion.
	DefaultEFConstruction = 100

	// DefaultEF is the default candidate list size during search.
	DefaultEF = 50

	// DefaultCapacity is the default maximum number of labels.
	DefaultCapacity = 1_000_000

	// minimumM is the minimum valid value for M; M == 1 would divide by log(1).
	minimumM = 2

	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2
)

// Options represents the options for configuring HNSW.
type Options struct {
	// M specifies the number of established connections for every new element during construction.
	// Reasonable range for M is 2-100. Higher M works better on datasets with high intrinsic
	// dimensionality and/or high recall, at the cost of memory.
	M int

	// EFConstruction is the size of the dynamic candidate list while linking new elements.
	EFConstruction int

	// EF is the size of the dynamic candidate list during search. It can be changed
	// later with SetEF. A search for k neighbors always explores at least k candidates.
	EF int

	// Capacity is the maximum number of labels the graph can hold. It never grows.
	Capacity int

	// Heuristic selects neighbors with the diversity heuristic (true) or
	// simply keeps the closest ones (false).
	Heuristic bool

	// Metric is the distance metric. Vectors are L2-normalized for MetricCosine.
	Metric distance.Metric

	// RandomSeed makes level assignment reproducible when set.
	RandomSeed *int64
}

// DefaultOptions contains the options used when no option function overrides them.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EF:             DefaultEF,
	Capacity:       DefaultCapacity,
	Heuristic:      true,
	Metric:         distance.MetricCosine,
}

// Item is a labelled vector passed to Insert.
type Item struct {
	Label  uint32
	Vector []float32
}

// Neighbor is a search hit.
type Neighbor struct {
	Label    uint32
	Distance float32
}

type node struct {
	label  uint32
	level  int
	vector []float32
	links  [][]uint32 // links[level] holds neighbor slots
}

// HNSW represents the Hierarchical Navigable Small World graph.
//
// Writers are exclusive, searches run concurrently with each other.
type HNSW struct {
	dimension int
	mmax      int     // Max number of connections per element/per layer
	mmax0     int     // Max for the 0 layer
	ml        float64 // Normalization factor for level generation
	ep        uint32  // Entry point slot
	maxLevel  int     // Track the current max level used

	nodes []*node
	slots map[uint32]uint32 // label -> slot

	ef           atomic.Int64
	distanceFunc distance.Func
	normalize    bool
	rng          *rand.Rand
	opts         Options

	mu sync.RWMutex
}

// New creates a new HNSW instance with the given dimension and options.
func New(dimension int, optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}

	distanceFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	if opts.M < minimumM {
		opts.M = minimumM
	}

	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}

	if opts.EF <= 0 {
		opts.EF = DefaultEF
	}

	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}

	seed := time.Now().UnixNano()
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	}

	h := &HNSW{
		dimension:    dimension,
		mmax:         opts.M,
		mmax0:        mmax0Multiplier * opts.M,
		ml:           1 / math.Log(float64(opts.M)),
		nodes:        make([]*node, 0, min(opts.Capacity, 1024)),
		slots:        make(map[uint32]uint32),
		distanceFunc: distanceFunc,
		normalize:    opts.Metric == distance.MetricCosine,
		rng:          rand.New(rand.NewSource(seed)), // nolint gosec
		opts:         opts,
	}
	h.ef.Store(int64(opts.EF))

	return h, nil
}

// Len returns the number of stored labels.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.nodes)
}

// Capacity returns the configured maximum number of labels.
func (h *HNSW) Capacity() int { return h.opts.Capacity }

// Dimension returns the vector dimension.
func (h *HNSW) Dimension() int { return h.dimension }

// Metric returns the distance metric.
func (h *HNSW) Metric() distance.Metric { return h.opts.Metric }

// Options returns a copy of the effective options, with EF reflecting SetEF.
func (h *HNSW) Options() Options {
	opts := h.opts
	opts.EF = h.EF()

	return opts
}

// EF returns the current search breadth.
func (h *HNSW) EF() int { return int(h.ef.Load()) }

// SetEF changes the search breadth. Values below 1 are ignored.
func (h *HNSW) SetEF(ef int) {
	if ef < 1 {
		return
	}
	h.ef.Store(int64(ef))
}

// Contains reports whether label is stored.
func (h *HNSW) Contains(label uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.slots[label]

	return ok
}

// Vector returns a copy of the stored (normalized) vector for label.
func (h *HNSW) Vector(label uint32) ([]float32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	slot, ok := h.slots[label]
	if !ok {
		return nil, false
	}

	return slices.Clone(h.nodes[slot].vector), true
}

// Labels returns all stored labels in insertion order.
func (h *HNSW) Labels() []uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	labels := make([]uint32, len(h.nodes))
	for i, n := range h.nodes {
		labels[i] = n.label
	}

	return labels
}

// pendingLocked counts the distinct labels of the batch that are not stored yet.
func (h *HNSW) pendingLocked(labels []uint32) int {
	seen := make(map[uint32]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := h.slots[l]; ok {
			continue
		}
		seen[l] = struct{}{}
	}

	return len(seen)
}

// Insert inserts new labels and replaces the vectors of existing ones.
//
// The batch is validated up front: a dimension mismatch, a non-finite
// vector or a capacity overflow rejects it without touching the graph.
func (h *HNSW) Insert(items []Item) error {
	if len(items) == 0 {
		return nil
	}

	for _, it := range items {
		if len(it.Vector) != h.dimension {
			return &ErrDimensionMismatch{Expected: h.dimension, Actual: len(it.Vector)}
		}

		if !distance.IsFinite(it.Vector) {
			return fmt.Errorf("%w: label %d", ErrNonFinite, it.Label)
		}
	}

	labels := make([]uint32, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if pending := h.pendingLocked(labels); len(h.nodes)+pending > h.opts.Capacity {
		return &ErrCapacityExceeded{Requested: pending, Current: len(h.nodes), Max: h.opts.Capacity}
	}

	for _, it := range items {
		vec := slices.Clone(it.Vector)
		if h.normalize {
			distance.NormalizeL2InPlace(vec)
		}

		if slot, ok := h.slots[it.Label]; ok {
			h.update(slot, vec)
			continue
		}

		h.add(it.Label, vec)
	}

	return nil
}

func (h *HNSW) randomLevel() int {
	// 1 - Float64() is in (0, 1], so the log is finite.
	return int(math.Floor(-math.Log(1-h.rng.Float64()) * h.ml))
}

func (h *HNSW) maxConnections(level int) int {
	// HNSW allows double the connections for the bottom level (0)
	if level == 0 {
		return h.mmax0
	}

	return h.mmax
}

func (h *HNSW) add(label uint32, vec []float32) {
	slot := uint32(len(h.nodes))
	n := &node{
		label:  label,
		level:  h.randomLevel(),
		vector: vec,
	}
	n.links = make([][]uint32, n.level+1)

	if len(h.nodes) == 0 {
		h.nodes = append(h.nodes, n)
		h.slots[label] = slot
		h.ep = slot
		h.maxLevel = n.level

		return
	}

	h.nodes = append(h.nodes, n)
	h.slots[label] = slot

	h.link(slot, n)

	if n.level > h.maxLevel {
		h.ep = slot
		h.maxLevel = n.level
	}
}

// update replaces the vector of an existing node and repairs its links.
// Inbound links from other nodes stay in place; they are re-ranked the next
// time those nodes overflow.
func (h *HNSW) update(slot uint32, vec []float32) {
	n := h.nodes[slot]
	n.vector = vec

	if len(h.nodes) == 1 {
		return
	}

	h.link(slot, n)
}

// link computes the neighborhood of n on every level it lives on and adds
// the reverse links. n is already stored at slot.
func (h *HNSW) link(slot uint32, n *node) {
	// Find single shortest path from top layers above our current node, which will be our new starting-point
	ep := queue.Item{Node: h.ep, Distance: h.distanceFunc(n.vector, h.nodes[h.ep].vector)}
	for level := h.maxLevel; level > n.level; level-- {
		ep = h.greedy(n.vector, ep, level)
	}

	// For all levels equal and below our current node, find the top (closest) candidates and create a link
	for level := min(n.level, h.maxLevel); level >= 0; level-- {
		candidates, _ := h.searchLayer(n.vector, ep, h.opts.EFConstruction, level)

		candidates = slices.DeleteFunc(candidates, func(it queue.Item) bool { return it.Node == slot })
		if len(candidates) == 0 {
			continue
		}

		selected := h.selectNeighbors(candidates, h.mmax)

		n.links[level] = make([]uint32, len(selected))
		for i, it := range selected {
			n.links[level][i] = it.Node
		}

		// Next link the neighbour nodes to our node, making it visible
		for _, it := range selected {
			h.connect(it.Node, slot, level)
		}

		ep = candidates[0]
	}
}

// connect adds a link first -> second on level, pruning first's links when
// they exceed the level's maximum.
func (h *HNSW) connect(first, second uint32, level int) {
	n := h.nodes[first]
	if level >= len(n.links) || slices.Contains(n.links[level], second) {
		return
	}

	n.links[level] = append(n.links[level], second)

	maxConns := h.maxConnections(level)
	if len(n.links[level]) <= maxConns {
		return
	}

	candidates := make([]queue.Item, len(n.links[level]))
	for i, id := range n.links[level] {
		candidates[i] = queue.Item{Node: id, Distance: h.distanceFunc(n.vector, h.nodes[id].vector)}
	}
	slices.SortFunc(candidates, compareItems)

	selected := h.selectNeighbors(candidates, maxConns)

	n.links[level] = n.links[level][:0]
	for _, it := range selected {
		n.links[level] = append(n.links[level], it.Node)
	}
}

// greedy walks level from ep towards q and returns the closest node found.
func (h *HNSW) greedy(q []float32, ep queue.Item, level int) queue.Item {
	for changed := true; changed; {
		changed = false

		n := h.nodes[ep.Node]
		if level >= len(n.links) {
			break
		}

		for _, id := range n.links[level] {
			d := h.distanceFunc(q, h.nodes[id].vector)
			if d < ep.Distance {
				// Update the starting point to our new node
				ep = queue.Item{Node: id, Distance: d}
				changed = true
			}
		}
	}

	return ep
}

// searchLayer performs a best-first search on one level and returns up to ef
// items ordered closest first, together with the set of visited slots.
func (h *HNSW) searchLayer(q []float32, ep queue.Item, ef int, level int) ([]queue.Item, *bitset.BitSet) {
	visited := bitset.New(uint(len(h.nodes)))
	visited.Set(uint(ep.Node))

	candidates := queue.NewMin(ef)
	candidates.PushItem(ep)

	results := queue.NewMax(ef + 1)
	results.PushItem(ep)

	for candidates.Len() > 0 {
		candidate := candidates.PopItem()
		if results.Len() >= ef && candidate.Distance > results.Top().Distance {
			break
		}

		n := h.nodes[candidate.Node]
		if level >= len(n.links) {
			continue
		}

		for _, id := range n.links[level] {
			if visited.Test(uint(id)) {
				continue
			}
			visited.Set(uint(id))

			item := queue.Item{Node: id, Distance: h.distanceFunc(q, h.nodes[id].vector)}

			// Add the element to results if size < EF or it beats the current worst
			if results.Len() < ef || queue.Less(item, results.Top()) {
				candidates.PushItem(item)
				results.PushItem(item)

				if results.Len() > ef {
					results.PopItem()
				}
			}
		}
	}

	return results.Sorted(), visited
}

// selectNeighbors picks up to m neighbors from candidates (closest first).
func (h *HNSW) selectNeighbors(candidates []queue.Item, m int) []queue.Item {
	if len(candidates) <= m {
		return candidates
	}

	if !h.opts.Heuristic {
		return candidates[:m]
	}

	selected := make([]queue.Item, 0, m)
	pruned := make([]queue.Item, 0, len(candidates))

	for _, c := range candidates {
		if len(selected) >= m {
			break
		}

		// Keep c only if it is closer to the base than to every selected neighbor
		keep := true
		for _, s := range selected {
			if h.distanceFunc(h.nodes[s.Node].vector, h.nodes[c.Node].vector) < c.Distance {
				keep = false
				break
			}
		}

		if keep {
			selected = append(selected, c)
		} else {
			pruned = append(pruned, c)
		}
	}

	// Top up with the closest pruned candidates so well-clustered data stays connected
	for _, c := range pruned {
		if len(selected) >= m {
			break
		}
		selected = append(selected, c)
	}

	return selected
}

// Search returns the k nearest labels to query ordered by ascending distance,
// ties broken by ascending label. It returns min(k, Len()) neighbors and an
// empty slice for an empty graph.
func (h *HNSW) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != h.dimension {
		return nil, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(query)}
	}

	if !distance.IsFinite(query) {
		return nil, ErrNonFinite
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 || len(h.nodes) == 0 {
		return []Neighbor{}, nil
	}

	q := query
	if h.normalize {
		q = distance.NormalizeL2Copy(query)
	}

	want := min(k, len(h.nodes))
	ef := max(h.EF(), k)

	ep := queue.Item{Node: h.ep, Distance: h.distanceFunc(q, h.nodes[h.ep].vector)}
	for level := h.maxLevel; level > 0; level-- {
		ep = h.greedy(q, ep, level)
	}

	found, visited := h.searchLayer(q, ep, ef, 0)
	if len(found) < want {
		found = h.fill(q, found, visited, want)
	}

	if len(found) > want {
		found = found[:want]
	}

	out := make([]Neighbor, len(found))
	for i, it := range found {
		out[i] = Neighbor{Label: h.nodes[it.Node].label, Distance: it.Distance}
	}

	// Slots follow insertion order, labels may not; re-sort so ties break on the label.
	slices.SortStableFunc(out, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		case a.Label < b.Label:
			return -1
		case a.Label > b.Label:
			return 1
		default:
			return 0
		}
	})

	return out, nil
}

// fill tops up a short result list with the closest unvisited nodes. It only
// runs when the graph walk could not reach want nodes.
func (h *HNSW) fill(q []float32, found []queue.Item, visited *bitset.BitSet, want int) []queue.Item {
	best := queue.NewMax(want + 1)
	for _, it := range found {
		best.PushItem(it)
	}

	for slot := range h.nodes {
		if visited.Test(uint(slot)) {
			continue
		}

		item := queue.Item{Node: uint32(slot), Distance: h.distanceFunc(q, h.nodes[slot].vector)}
		if best.Len() < want || queue.Less(item, best.Top()) {
			best.PushItem(item)
			if best.Len() > want {
				best.PopItem()
			}
		}
	}

	return best.Sorted()
}

func compareItems(a, b queue.Item) int {
	switch {
	case queue.Less(a, b):
		return -1
	case queue.Less(b, a):
		return 1
	default:
		return 0
	}
}
