package metadata

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/vecstore/codec"
)

// ErrCorrupt is returned when a persisted overlay cannot be decoded.
var ErrCorrupt = errors.New("metadata: corrupt data")

// Record holds the metadata fields of one identifier.
type Record map[string]string

// Clone returns a copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}

	return maps.Clone(r)
}

// Overlay maps identifiers to metadata records. It is safe for concurrent use.
type Overlay struct {
	mu      sync.RWMutex
	fields  []string
	allowed map[string]struct{}
	records map[string]Record
}

// New creates an overlay that keeps only the given fields.
func New(fields []string) *Overlay {
	fields = slices.Clone(fields)
	slices.Sort(fields)
	fields = slices.Compact(fields)

	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}

	return &Overlay{
		fields:  fields,
		allowed: allowed,
		records: make(map[string]Record),
	}
}

// Fields returns the configured field names in sorted order.
func (o *Overlay) Fields() []string {
	return slices.Clone(o.fields)
}

// Put replaces the record of id with the configured subset of fields.
func (o *Overlay) Put(id string, fields map[string]string) {
	rec := o.filter(fields)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.records[id] = rec
}

// PutBatch replaces several records under one lock.
func (o *Overlay) PutBatch(records map[string]map[string]string) {
	filtered := make(map[string]Record, len(records))
	for id, fields := range records {
		filtered[id] = o.filter(fields)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	maps.Copy(o.records, filtered)
}

func (o *Overlay) filter(fields map[string]string) Record {
	rec := make(Record, min(len(fields), len(o.fields)))
	for k, v := range fields {
		if _, ok := o.allowed[k]; ok {
			rec[k] = v
		}
	}

	return rec
}

// Get returns a copy of the record stored for id.
func (o *Overlay) Get(id string) (Record, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rec, ok := o.records[id]
	if !ok {
		return nil, false
	}

	return rec.Clone(), true
}

// IDs returns the identifiers that have a record, sorted.
func (o *Overlay) IDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return slices.Sorted(maps.Keys(o.records))
}

// Len returns the number of stored records.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.records)
}

// snapshot is the persisted form of an overlay.
type snapshot struct {
	Fields  []string          `json:"fields" msgpack:"fields"`
	Records map[string]Record `json:"records" msgpack:"records"`
}

// Save encodes all records with c and writes them to w.
func (o *Overlay) Save(w io.Writer, c codec.Codec) error {
	o.mu.RLock()
	b, err := c.Marshal(snapshot{Fields: o.fields, Records: o.records})
	o.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("metadata: encode with %s: %w", c.Name(), err)
	}

	_, err = w.Write(b)

	return err
}

// Load replaces all records with the ones decoded from r. The configured
// field set is kept; persisted records are not re-filtered.
func (o *Overlay) Load(r io.Reader, c codec.Codec) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var s snapshot
	if err := c.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: decode with %s: %v", ErrCorrupt, c.Name(), err)
	}

	records := make(map[string]Record, len(s.Records))
	for id, rec := range s.Records {
		records[id] = rec.Clone()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.records = records

	return nil
}
