package vecstore

import (
	"fmt"
	"io"

	"github.com/hupe1980/vecstore/hnsw"
)

// Stats is a point-in-time summary of a store.
type Stats struct {
	Namespace  string
	Count      int
	Capacity   int
	Dimension  int
	NextLabel  uint32
	MetaFields []string
	Metadata   int // number of identifiers with a metadata record
	Dirty      bool
	Index      hnsw.Stats

	EmbedCallsInFlight int64 // embedder calls currently running
	EmbedTextsInFlight int64 // texts carried by those calls
}

// Stats collects statistics about the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calls, texts := s.throttle.InFlight()

	return Stats{
		Namespace:  s.namespace,
		Count:      s.index.Len(),
		Capacity:   s.index.Capacity(),
		Dimension:  s.dimension,
		NextLabel:  s.registry.Next(),
		MetaFields: s.overlay.Fields(),
		Metadata:   s.overlay.Len(),
		Dirty:      s.dirty,
		Index:      s.index.Stats(),

		EmbedCallsInFlight: calls,
		EmbedTextsInFlight: texts,
	}
}

// Print writes a human-readable summary to w.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintf(w, "Namespace = %s\n", s.Namespace)
	fmt.Fprintf(w, "Dimension = %d\n", s.Dimension)
	fmt.Fprintf(w, "Next label = %d\n", s.NextLabel)
	fmt.Fprintf(w, "Meta fields = %v (%d records)\n", s.MetaFields, s.Metadata)
	fmt.Fprintf(w, "Unflushed changes = %t\n", s.Dirty)
	fmt.Fprintf(w, "Embedding in flight = %d calls, %d texts\n", s.EmbedCallsInFlight, s.EmbedTextsInFlight)
	s.Index.Print(w)
}
