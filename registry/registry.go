// Package registry maps caller-chosen string identifiers to dense uint32
// labels used by the graph index.
//
// Labels are allocated monotonically from 0 and never reused. At any time the
// mapping is a bijection between live identifiers and allocated labels.
package registry

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrCorrupt is returned by Load for malformed or inconsistent input.
var ErrCorrupt = errors.New("registry: corrupt data")

// Label is the internal integer handle of an identifier.
type Label = uint32

// maxIDLen bounds identifier length on load.
const maxIDLen = 1 << 20

// Registry is a thread-safe identifier <-> label bijection.
type Registry struct {
	mu     sync.RWMutex
	labels map[string]Label
	ids    map[Label]string
	live   *roaring.Bitmap
	next   Label
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		labels: make(map[string]Label),
		ids:    make(map[Label]string),
		live:   roaring.New(),
	}
}

// ResolveOrAllocate returns the label of id, allocating the next label when
// id is unknown. existed reports whether id was already registered.
func (r *Registry) ResolveOrAllocate(id string) (label Label, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.labels[id]; ok {
		return l, true
	}

	label = r.next
	r.next++

	r.labels[id] = label
	r.ids[label] = id
	r.live.Add(label)

	return label, false
}

// Peek returns the labels ResolveOrAllocate would return for ids, called in
// order, without allocating anything.
func (r *Registry) Peek(ids []string) []Label {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Label, len(ids))
	pending := make(map[string]Label)
	next := r.next

	for i, id := range ids {
		if l, ok := r.labels[id]; ok {
			out[i] = l
			continue
		}

		l, ok := pending[id]
		if !ok {
			l = next
			next++
			pending[id] = l
		}

		out[i] = l
	}

	return out
}

// LabelOf returns the label registered for id.
func (r *Registry) LabelOf(id string) (Label, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.labels[id]

	return l, ok
}

// IDOf returns the identifier registered for label.
func (r *Registry) IDOf(label Label) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.ids[label]

	return id, ok
}

// Unknown returns how many distinct identifiers in ids are not registered.
func (r *Registry) Unknown(ids []string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := r.labels[id]; ok {
			continue
		}
		seen[id] = struct{}{}
	}

	return len(seen)
}

// Contains reports whether label is allocated.
func (r *Registry) Contains(label Label) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.live.Contains(label)
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.labels)
}

// Next returns the label the next allocation will use.
func (r *Registry) Next() Label {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.next
}

// Labels returns a copy of the set of allocated labels.
func (r *Registry) Labels() *roaring.Bitmap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.live.Clone()
}

// Range calls fn for every entry in label order until fn returns false.
func (r *Registry) Range(fn func(id string, label Label) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it := r.live.Iterator()
	for it.HasNext() {
		l := it.Next()
		if !fn(r.ids[l], l) {
			return
		}
	}
}

// Save persists the registry to w.
// Format: [Next: 4 bytes] [Count: 8 bytes] [Entry...]
// Entry: [IDLen: 4 bytes] [ID bytes] [Label: 4 bytes]
// Entries are written in label order.
func (r *Registry) Save(w io.Writer) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, r.next); err != nil {
		return err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint64(len(r.labels))); err != nil {
		return err
	}

	buf := make([]byte, 4)

	it := r.live.Iterator()
	for it.HasNext() {
		l := it.Next()
		id := r.ids[l]

		binary.LittleEndian.PutUint32(buf, uint32(len(id)))
		if _, err := bw.Write(buf); err != nil {
			return err
		}

		if _, err := bw.WriteString(id); err != nil {
			return err
		}

		binary.LittleEndian.PutUint32(buf, l)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the registry content with the data read from r. On error the
// registry is left unchanged.
func (r *Registry) Load(rd io.Reader) error {
	br := bufio.NewReader(rd)

	var next Label
	if err := binary.Read(br, binary.LittleEndian, &next); err != nil {
		return fmt.Errorf("%w: read next label: %v", ErrCorrupt, err)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: read count: %v", ErrCorrupt, err)
	}

	if count > uint64(next) {
		return fmt.Errorf("%w: %d entries but next label is %d", ErrCorrupt, count, next)
	}

	labels := make(map[string]Label, count)
	ids := make(map[Label]string, count)
	live := roaring.New()

	buf := make([]byte, 4)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrCorrupt, i, err)
		}

		n := binary.LittleEndian.Uint32(buf)
		if n > maxIDLen {
			return fmt.Errorf("%w: entry %d: identifier length %d", ErrCorrupt, i, n)
		}

		idBytes := make([]byte, n)
		if _, err := io.ReadFull(br, idBytes); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrCorrupt, i, err)
		}

		if _, err := io.ReadFull(br, buf); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrCorrupt, i, err)
		}

		id := string(idBytes)
		l := binary.LittleEndian.Uint32(buf)

		if l >= next {
			return fmt.Errorf("%w: label %d beyond next label %d", ErrCorrupt, l, next)
		}

		if _, dup := labels[id]; dup {
			return fmt.Errorf("%w: duplicate identifier %q", ErrCorrupt, id)
		}

		if _, dup := ids[l]; dup {
			return fmt.Errorf("%w: duplicate label %d", ErrCorrupt, l)
		}

		labels[id] = l
		ids[l] = id
		live.Add(l)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.labels, r.ids, r.live, r.next = labels, ids, live, next

	return nil
}
