package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := New()

	// 1. Allocate
	l, existed := r.ResolveOrAllocate("alice")
	assert.False(t, existed)
	assert.Equal(t, Label(0), l)

	l, existed = r.ResolveOrAllocate("bob")
	assert.False(t, existed)
	assert.Equal(t, Label(1), l)

	// 2. Resolve
	l, existed = r.ResolveOrAllocate("alice")
	assert.True(t, existed)
	assert.Equal(t, Label(0), l)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, Label(2), r.Next())

	// 3. Lookup both ways
	l, ok := r.LabelOf("bob")
	assert.True(t, ok)
	assert.Equal(t, Label(1), l)

	id, ok := r.IDOf(0)
	assert.True(t, ok)
	assert.Equal(t, "alice", id)

	_, ok = r.LabelOf("carol")
	assert.False(t, ok)

	_, ok = r.IDOf(7)
	assert.False(t, ok)

	assert.True(t, r.Contains(1))
	assert.False(t, r.Contains(2))
	assert.Equal(t, []uint32{0, 1}, r.Labels().ToArray())
}

func TestUnknown(t *testing.T) {
	r := New()
	r.ResolveOrAllocate("a")

	assert.Equal(t, 2, r.Unknown([]string{"a", "b", "c", "b"}))
	assert.Equal(t, 0, r.Unknown(nil))
}

func TestPeek(t *testing.T) {
	r := New()
	r.ResolveOrAllocate("a")
	r.ResolveOrAllocate("b")

	ids := []string{"c", "a", "d", "c"}
	peeked := r.Peek(ids)
	assert.Equal(t, []Label{2, 0, 3, 2}, peeked)
	assert.Equal(t, Label(2), r.Next())
	assert.Equal(t, 2, r.Len())

	for i, id := range ids {
		l, _ := r.ResolveOrAllocate(id)
		assert.Equal(t, peeked[i], l, id)
	}

	assert.Equal(t, Label(4), r.Next())
}

func TestRange(t *testing.T) {
	r := New()
	for _, id := range []string{"x", "y", "z"} {
		r.ResolveOrAllocate(id)
	}

	var got []string
	r.Range(func(id string, _ Label) bool {
		got = append(got, id)
		return len(got) < 2
	})

	assert.Equal(t, []string{"x", "y"}, got)
}

func TestConcurrentAllocate(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)

		go func(w int) {
			defer wg.Done()

			for i := range 100 {
				r.ResolveOrAllocate(fmt.Sprintf("id-%d", (i+w)%100))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 100, r.Len())
	assert.Equal(t, Label(100), r.Next())

	seen := make(map[Label]bool)
	r.Range(func(id string, l Label) bool {
		assert.False(t, seen[l])
		seen[l] = true

		got, ok := r.LabelOf(id)
		assert.True(t, ok)
		assert.Equal(t, l, got)

		return true
	})
	assert.Len(t, seen, 100)
}

func TestSaveLoad(t *testing.T) {
	r := New()
	for _, id := range []string{"doc-1", "", "döc-3 ✓"} {
		r.ResolveOrAllocate(id)
	}

	var buf bytes.Buffer
	require.NoError(t, r.Save(&buf))

	r2 := New()
	require.NoError(t, r2.Load(&buf))

	assert.Equal(t, 3, r2.Len())
	assert.Equal(t, Label(3), r2.Next())

	id, ok := r2.IDOf(2)
	assert.True(t, ok)
	assert.Equal(t, "döc-3 ✓", id)

	l, ok := r2.LabelOf("")
	assert.True(t, ok)
	assert.Equal(t, Label(1), l)

	// Allocation continues after the restored labels.
	l, existed := r2.ResolveOrAllocate("doc-4")
	assert.False(t, existed)
	assert.Equal(t, Label(3), l)
}

func entry(id string, label uint32) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(id)))
	b.WriteString(id)
	_ = binary.Write(&b, binary.LittleEndian, label)

	return b.Bytes()
}

func header(next uint32, count uint64) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, next)
	_ = binary.Write(&b, binary.LittleEndian, count)

	return b.Bytes()
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated header", []byte{1, 0}},
		{"count beyond next", header(1, 2)},
		{"truncated entry", append(header(1, 1), 5, 0, 0, 0, 'a')},
		{"label beyond next", append(header(1, 1), entry("a", 1)...)},
		{"duplicate id", append(append(header(2, 2), entry("a", 0)...), entry("a", 1)...)},
		{"duplicate label", append(append(header(2, 2), entry("a", 0)...), entry("b", 0)...)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			r.ResolveOrAllocate("keep")

			err := r.Load(bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, ErrCorrupt)

			// A failed load leaves the registry untouched.
			_, ok := r.LabelOf("keep")
			assert.True(t, ok)
		})
	}
}
