package hnsw

import (
	"fmt"
	"io"
)

// LevelStats describes one level of the graph.
type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections float64
}

// Stats is a point-in-time summary of the graph.
type Stats struct {
	Count          int
	Capacity       int
	Dimension      int
	M              int
	Mmax           int
	Mmax0          int
	EFConstruction int
	EF             int
	Heuristic      bool
	Ml             float64
	EntryPoint     uint32 // label of the entry point
	MaxLevel       int
	Levels         []LevelStats
}

// Stats collects statistics about the HNSW graph.
func (h *HNSW) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{
		Count:          len(h.nodes),
		Capacity:       h.opts.Capacity,
		Dimension:      h.dimension,
		M:              h.opts.M,
		Mmax:           h.mmax,
		Mmax0:          h.mmax0,
		EFConstruction: h.opts.EFConstruction,
		EF:             h.EF(),
		Heuristic:      h.opts.Heuristic,
		Ml:             h.ml,
		MaxLevel:       h.maxLevel,
	}

	if len(h.nodes) == 0 {
		return s
	}

	s.EntryPoint = h.nodes[h.ep].label
	s.Levels = make([]LevelStats, h.maxLevel+1)

	for level := range s.Levels {
		s.Levels[level].Level = level
	}

	for _, n := range h.nodes {
		for level := n.level; level >= 0; level-- {
			s.Levels[level].Nodes++
			s.Levels[level].Connections += len(n.links[level])
		}
	}

	for i := range s.Levels {
		if s.Levels[i].Nodes > 0 {
			s.Levels[i].AvgConnections = float64(s.Levels[i].Connections) / float64(s.Levels[i].Nodes)
		}
	}

	return s
}

// Print writes a human readable report of s to w.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "Options:")
	fmt.Fprintf(w, "\tM = %d\n", s.M)
	fmt.Fprintf(w, "\tEFConstruction = %d\n", s.EFConstruction)
	fmt.Fprintf(w, "\tEF = %d\n", s.EF)
	fmt.Fprintf(w, "\tHeuristic = %v\n\n", s.Heuristic)

	fmt.Fprintln(w, "Parameters:")
	fmt.Fprintf(w, "\tmmax = %d\n", s.Mmax)
	fmt.Fprintf(w, "\tmmax0 = %d\n", s.Mmax0)
	fmt.Fprintf(w, "\tep = %d\n", s.EntryPoint)
	fmt.Fprintf(w, "\tmaxLevel = %d\n", s.MaxLevel)
	fmt.Fprintf(w, "\tml = %f\n\n", s.Ml)

	fmt.Fprintf(w, "Number of nodes = %d of %d\n\n", s.Count, s.Capacity)

	fmt.Fprintln(w, "Node Levels:")
	for _, l := range s.Levels {
		fmt.Fprintf(w, "\tLevel %d:\n", l.Level)
		fmt.Fprintf(w, "\t\tNumber of nodes: %d\n", l.Nodes)
		fmt.Fprintf(w, "\t\tNumber of connections: %d\n", l.Connections)
		fmt.Fprintf(w, "\t\tAverage connections per node: %.2f\n", l.AvgConnections)
	}

	fmt.Fprintf(w, "\nTotal number of node levels = %d\n", len(s.Levels))
}
