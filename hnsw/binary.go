package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/hupe1980/vecstore/distance"
)

const (
	magicNumber   uint32 = 0x57534e48 // "HNSW"
	formatVersion uint16 = 1

	flagHeuristic uint16 = 1 << 0
)

// fileHeader is the fixed-size prefix of a serialized graph.
type fileHeader struct {
	Magic          uint32
	Version        uint16
	Flags          uint16
	Metric         uint32
	Dimension      uint32
	M              uint32
	EFConstruction uint32
	EF             uint32
	Capacity       uint32
	Count          uint32
	EntryPoint     uint32 // slot
	MaxLevel       uint32
	Ml             float64
}

// Save writes the graph in a little-endian binary format. The graph is
// read-locked for the duration of the write.
func (h *HNSW) Save(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bw := bufio.NewWriter(w)

	hdr := fileHeader{
		Magic:          magicNumber,
		Version:        formatVersion,
		Metric:         uint32(h.opts.Metric),
		Dimension:      uint32(h.dimension),
		M:              uint32(h.opts.M),
		EFConstruction: uint32(h.opts.EFConstruction),
		EF:             uint32(h.EF()),
		Capacity:       uint32(h.opts.Capacity),
		Count:          uint32(len(h.nodes)),
		EntryPoint:     h.ep,
		MaxLevel:       uint32(h.maxLevel),
		Ml:             h.ml,
	}
	if h.opts.Heuristic {
		hdr.Flags |= flagHeuristic
	}

	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	for _, n := range h.nodes {
		if err := binary.Write(bw, binary.LittleEndian, [2]uint32{n.label, uint32(n.level)}); err != nil {
			return err
		}

		if err := binary.Write(bw, binary.LittleEndian, n.vector); err != nil {
			return err
		}

		for _, links := range n.links {
			if err := binary.Write(bw, binary.LittleEndian, uint32(len(links))); err != nil {
				return err
			}

			if len(links) == 0 {
				continue
			}

			if err := binary.Write(bw, binary.LittleEndian, links); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// Load reads a graph written by Save. The persisted parameters win over the
// defaults; optFns may only change EF and RandomSeed.
func Load(r io.Reader, optFns ...func(o *Options)) (*HNSW, error) {
	br := bufio.NewReader(r)

	var hdr fileHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}

	if hdr.Magic != magicNumber {
		return nil, fmt.Errorf("%w: invalid magic 0x%08x", ErrCorrupt, hdr.Magic)
	}

	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, hdr.Version)
	}

	if hdr.Dimension == 0 || hdr.M < minimumM || hdr.Count > hdr.Capacity {
		return nil, fmt.Errorf("%w: invalid parameters (dim=%d m=%d count=%d capacity=%d)", ErrCorrupt, hdr.Dimension, hdr.M, hdr.Count, hdr.Capacity)
	}

	if hdr.Count > 0 && hdr.EntryPoint >= hdr.Count {
		return nil, fmt.Errorf("%w: entry point %d out of range", ErrCorrupt, hdr.EntryPoint)
	}

	override := Options{EF: int(hdr.EF)}
	for _, fn := range optFns {
		fn(&override)
	}

	distanceFunc, err := distance.Provider(distance.Metric(hdr.Metric))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	seed := time.Now().UnixNano()
	if override.RandomSeed != nil {
		seed = *override.RandomSeed
	}

	opts := Options{
		M:              int(hdr.M),
		EFConstruction: int(hdr.EFConstruction),
		EF:             max(override.EF, 1),
		Capacity:       int(hdr.Capacity),
		Heuristic:      hdr.Flags&flagHeuristic != 0,
		Metric:         distance.Metric(hdr.Metric),
		RandomSeed:     override.RandomSeed,
	}

	h := &HNSW{
		dimension:    int(hdr.Dimension),
		mmax:         opts.M,
		mmax0:        mmax0Multiplier * opts.M,
		ml:           hdr.Ml,
		ep:           hdr.EntryPoint,
		maxLevel:     int(hdr.MaxLevel),
		nodes:        make([]*node, 0, hdr.Count),
		slots:        make(map[uint32]uint32, hdr.Count),
		distanceFunc: distanceFunc,
		normalize:    opts.Metric == distance.MetricCosine,
		rng:          rand.New(rand.NewSource(seed)), // nolint gosec
		opts:         opts,
	}
	h.ef.Store(int64(opts.EF))

	if math.IsNaN(h.ml) || h.ml <= 0 {
		h.ml = 1 / math.Log(float64(opts.M))
	}

	for slot := uint32(0); slot < hdr.Count; slot++ {
		var head [2]uint32
		if err := binary.Read(br, binary.LittleEndian, &head); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrCorrupt, slot, err)
		}

		label, level := head[0], int(head[1])
		if level > int(hdr.MaxLevel) {
			return nil, fmt.Errorf("%w: node %d level %d above max level %d", ErrCorrupt, slot, level, hdr.MaxLevel)
		}

		if _, dup := h.slots[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %d", ErrCorrupt, label)
		}

		n := &node{
			label:  label,
			level:  level,
			vector: make([]float32, hdr.Dimension),
			links:  make([][]uint32, level+1),
		}

		if err := binary.Read(br, binary.LittleEndian, n.vector); err != nil {
			return nil, fmt.Errorf("%w: node %d vector: %v", ErrCorrupt, slot, err)
		}

		for l := 0; l <= level; l++ {
			var count uint32
			if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
				return nil, fmt.Errorf("%w: node %d links: %v", ErrCorrupt, slot, err)
			}

			if count > hdr.Count {
				return nil, fmt.Errorf("%w: node %d has %d links on level %d", ErrCorrupt, slot, count, l)
			}

			if count == 0 {
				continue
			}

			n.links[l] = make([]uint32, count)
			if err := binary.Read(br, binary.LittleEndian, n.links[l]); err != nil {
				return nil, fmt.Errorf("%w: node %d links: %v", ErrCorrupt, slot, err)
			}
		}

		h.nodes = append(h.nodes, n)
		h.slots[label] = slot
	}

	for slot, n := range h.nodes {
		for _, links := range n.links {
			for _, id := range links {
				if id >= hdr.Count {
					return nil, fmt.Errorf("%w: node %d links to missing slot %d", ErrCorrupt, slot, id)
				}
			}
		}
	}

	return h, nil
}
