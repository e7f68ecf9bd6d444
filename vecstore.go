package vecstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/distance"
	"github.com/hupe1980/vecstore/hnsw"
	"github.com/hupe1980/vecstore/metadata"
	"github.com/hupe1980/vecstore/persistence"
	"github.com/hupe1980/vecstore/registry"
	"github.com/hupe1980/vecstore/resource"
)

// Record is the content and metadata upserted under one identifier.
type Record struct {
	// Content is the text handed to the embedder.
	Content string

	// Metadata holds the fields kept in the overlay. Fields outside the
	// configured set are dropped.
	Metadata map[string]string
}

// Result is one query hit.
type Result struct {
	ID         string
	Label      uint32
	Distance   float32 // cosine distance in [0, 2]
	Similarity float32 // 1 - Distance, clamped to [0, 1]
	Metadata   map[string]string
}

// Store is a persistent vector store for one namespace.
//
// Upsert mutation and Flush are exclusive; Query, Get and Stats share a read
// lock. Embedding happens outside the lock.
type Store struct {
	mu sync.RWMutex

	opts      options
	namespace string
	dimension int
	embedder  Embedder

	registry *registry.Registry
	index    *hnsw.HNSW
	overlay  *metadata.Overlay
	persist  *persistence.Manager
	throttle *resource.Controller

	logger  *Logger
	metrics MetricsCollector

	dirty  bool
	closed bool
}

// SnapshotName returns the blob name a namespace is persisted under.
func SnapshotName(namespace string) string {
	return namespace + "_hnsw.snapshot"
}

func validateNamespace(ns string) error {
	if ns == "" || ns == "." || ns == ".." || strings.ContainsAny(ns, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}

	return nil
}

// Open opens the namespace configured by optFns. If a snapshot exists it is
// restored; otherwise the namespace starts empty. The embedder fixes the
// vector dimension and must match a restored snapshot.
func Open(ctx context.Context, embedder Embedder, optFns ...Option) (*Store, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := validateNamespace(opts.namespace); err != nil {
		return nil, err
	}

	if embedder == nil {
		return nil, errors.New("vecstore: embedder is required")
	}

	dim := embedder.Dimension()
	if dim <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}

	store := opts.store
	if store == nil {
		store = blobstore.NewLocalStore(opts.workingDir)
	}

	s := &Store{
		opts:      opts,
		namespace: opts.namespace,
		dimension: dim,
		embedder:  embedder,
		persist: persistence.NewManager(store, func(o *persistence.Options) {
			o.Compression = opts.compression
		}),
		throttle: resource.NewController(resource.Config{
			MaxConcurrentCalls: int64(max(opts.embedConcurrency, 1)),
			MaxInFlightTexts:   int64(max(opts.embedMaxTexts, 0)),
			CallsPerSecond:     opts.embedRate,
			Burst:              opts.embedBurst,
		}),
		logger:  opts.logger.WithNamespace(opts.namespace),
		metrics: opts.metrics,
	}

	name := SnapshotName(opts.namespace)

	snap, err := s.persist.Load(ctx, name)
	switch {
	case errors.Is(err, persistence.ErrNoSnapshot):
		if err := s.init(); err != nil {
			return nil, err
		}

		s.logger.DebugContext(ctx, "no snapshot, starting empty", "snapshot", name)

		return s, nil
	case err != nil:
		s.logger.LogLoad(ctx, name, 0, err)
		return nil, err
	}

	if err := s.restore(ctx, snap); err != nil {
		s.logger.LogLoad(ctx, name, 0, err)
		return nil, fmt.Errorf("vecstore: restore %s: %w", name, err)
	}

	s.logger.LogLoad(ctx, name, s.index.Len(), nil)

	return s, nil
}

func (s *Store) init() error {
	index, err := hnsw.New(s.dimension, func(o *hnsw.Options) {
		o.M = s.opts.m
		o.EFConstruction = s.opts.efConstruction
		o.EF = s.opts.ef
		o.Capacity = s.opts.capacity
		o.Metric = distance.MetricCosine
		o.RandomSeed = s.opts.randomSeed
	})
	if err != nil {
		return err
	}

	s.index = index
	s.registry = registry.New()
	s.overlay = metadata.New(s.opts.metaFields)

	return nil
}

// Namespace returns the namespace name.
func (s *Store) Namespace() string { return s.namespace }

// Dimension returns the vector dimension.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of identifiers stored.
func (s *Store) Len() int { return s.index.Len() }

// Capacity returns the maximum number of identifiers.
func (s *Store) Capacity() int { return s.index.Capacity() }

// EF returns the current search candidate list size.
func (s *Store) EF() int { return s.index.EF() }

// SetEF changes the search candidate list size. Values below 1 are ignored.
// A change marks the store dirty and is persisted by the next Flush.
func (s *Store) SetEF(ef int) {
	if ef < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.index.EF() == ef {
		return
	}

	s.index.SetEF(ef)
	s.dirty = true
}

// MetaFields returns the metadata fields kept per identifier.
func (s *Store) MetaFields() []string { return s.overlay.Fields() }

// Upsert embeds and stores records keyed by identifier. Known identifiers
// keep their label and get their vector and metadata replaced.
//
// Nothing is mutated when embedding fails (*ErrEmbedding) or the batch
// would exceed the capacity (*ErrCapacityExceeded).
func (s *Store) Upsert(ctx context.Context, records map[string]Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	if s.isClosed() {
		return ErrClosed
	}

	begin := time.Now()
	added := 0

	defer func() {
		s.logger.LogUpsert(ctx, len(records), added, err)
		s.metrics.RecordUpsert(len(records), added, time.Since(begin), err)
	}()

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	texts := make([]string, len(ids))
	for i, id := range ids {
		texts[i] = records[id].Content
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	added = s.registry.Unknown(ids)
	if current, limit := s.index.Len(), s.index.Capacity(); current+added > limit {
		n := added
		added = 0

		return &ErrCapacityExceeded{Requested: n, Current: current, Max: limit}
	}

	// Labels are only allocated once the index accepted the batch.
	labels := s.registry.Peek(ids)

	items := make([]hnsw.Item, len(ids))
	meta := make(map[string]map[string]string, len(ids))

	for i, id := range ids {
		items[i] = hnsw.Item{Label: labels[i], Vector: vectors[i]}
		meta[id] = records[id].Metadata
	}

	if err := s.index.Insert(items); err != nil {
		added = 0
		return fmt.Errorf("vecstore: insert: %w", err)
	}

	for _, id := range ids {
		s.registry.ResolveOrAllocate(id)
	}

	s.overlay.PutBatch(meta)
	s.dirty = true

	return nil
}

// Query embeds text and returns up to topK nearest identifiers, closest
// first. An empty store or a non-positive topK returns an empty result
// without calling the embedder.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	if topK <= 0 || s.index.Len() == 0 {
		return []Result{}, nil
	}

	vectors, err := s.embed(ctx, []string{text})
	if err != nil {
		s.logger.LogQuery(ctx, topK, 0, err)
		s.metrics.RecordQuery(topK, 0, 0, err)

		return nil, err
	}

	return s.QueryVector(ctx, vectors[0], topK)
}

// QueryVector is Query for an already embedded vector.
func (s *Store) QueryVector(ctx context.Context, vector []float32, topK int) (results []Result, err error) {
	begin := time.Now()

	defer func() {
		s.logger.LogQuery(ctx, topK, len(results), err)
		s.metrics.RecordQuery(topK, len(results), time.Since(begin), err)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	if topK <= 0 || s.index.Len() == 0 {
		return []Result{}, nil
	}

	neighbors, err := s.index.Search(vector, topK)
	if err != nil {
		return nil, err
	}

	results = make([]Result, 0, len(neighbors))

	for _, n := range neighbors {
		id, ok := s.registry.IDOf(n.Label)
		if !ok {
			s.logger.LogInconsistency(ctx, n.Label, "index label has no identifier")
			return nil, fmt.Errorf("%w: label %d has no identifier", ErrInconsistent, n.Label)
		}

		meta, _ := s.overlay.Get(id)

		results = append(results, Result{
			ID:         id,
			Label:      n.Label,
			Distance:   n.Distance,
			Similarity: distance.Similarity(n.Distance),
			Metadata:   meta,
		})
	}

	return results, nil
}

// Get returns the label and metadata of id. Distance and Similarity are zero.
// It returns ErrNotFound for unknown identifiers.
func (s *Store) Get(id string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Result{}, ErrClosed
	}

	label, ok := s.registry.LabelOf(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	meta, _ := s.overlay.Get(id)

	return Result{ID: id, Label: label, Metadata: meta}, nil
}

// Flush writes a snapshot of the namespace. It is the only way changes
// survive a restart.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	return s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) (err error) {
	begin := time.Now()
	name := SnapshotName(s.namespace)

	var n int64

	defer func() {
		s.logger.LogFlush(ctx, name, n, err)
		s.metrics.RecordFlush(n, time.Since(begin), err)
	}()

	sections, err := s.sections()
	if err != nil {
		return err
	}

	n, err = s.persist.Save(ctx, name, sections)
	if err != nil {
		return err
	}

	s.dirty = false

	return nil
}

// Dirty reports whether there are changes since the last Flush or Open.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dirty
}

// Close closes the store. With WithFlushOnClose unflushed changes are
// written first. Closing twice is a no-op.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if s.opts.flushOnClose && s.dirty {
		if err := s.flushLocked(ctx); err != nil {
			return err
		}
	}

	s.closed = true

	return nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}
