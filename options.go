package vecstore

import (
	"log/slog"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/codec"
	"github.com/hupe1980/vecstore/hnsw"
	"github.com/hupe1980/vecstore/persistence"
)

const (
	// DefaultNamespace is used when WithNamespace is not given.
	DefaultNamespace = "default"

	// DefaultWorkingDir is the local directory snapshots are written to when
	// neither WithWorkingDir nor WithBlobStore is given.
	DefaultWorkingDir = "vecstore_data"

	// DefaultCapacity is the default maximum number of identifiers.
	DefaultCapacity = hnsw.DefaultCapacity

	// DefaultEmbedBatchSize is the default number of texts per embedder call.
	DefaultEmbedBatchSize = 32

	// DefaultEmbedConcurrency is the default number of embedder calls in flight.
	DefaultEmbedConcurrency = 4
)

type options struct {
	namespace      string
	workingDir     string
	store          blobstore.BlobStore
	capacity       int
	m              int
	efConstruction int
	ef             int
	efSet          bool
	metaFields     []string
	compression    persistence.Compression
	codec          codec.Codec

	embedBatchSize   int
	embedConcurrency int
	embedMaxTexts    int
	embedRate        float64
	embedBurst       int

	logger       *Logger
	metrics      MetricsCollector
	randomSeed   *int64
	flushOnClose bool
}

func defaultOptions() options {
	return options{
		namespace:        DefaultNamespace,
		workingDir:       DefaultWorkingDir,
		capacity:         DefaultCapacity,
		m:                hnsw.DefaultM,
		efConstruction:   hnsw.DefaultEFConstruction,
		ef:               hnsw.DefaultEF,
		compression:      persistence.CompressionNone,
		codec:            codec.Default,
		embedBatchSize:   DefaultEmbedBatchSize,
		embedConcurrency: DefaultEmbedConcurrency,
		logger:           NoopLogger(),
		metrics:          NoopMetricsCollector{},
	}
}

// Option configures a Store.
type Option func(*options)

// WithNamespace sets the namespace. The snapshot is stored as
// "<namespace>_hnsw.snapshot".
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithWorkingDir stores snapshots in dir on the local filesystem.
func WithWorkingDir(dir string) Option {
	return func(o *options) {
		o.workingDir = dir
	}
}

// WithBlobStore stores snapshots in store instead of the working directory.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCapacity sets the maximum number of identifiers. It only applies to
// new namespaces; a persisted capacity wins.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		o.capacity = capacity
	}
}

// WithM sets the number of links per node. It only applies to new namespaces.
func WithM(m int) Option {
	return func(o *options) {
		o.m = m
	}
}

// WithEFConstruction sets the candidate list size used while linking.
// It only applies to new namespaces.
func WithEFConstruction(ef int) Option {
	return func(o *options) {
		o.efConstruction = ef
	}
}

// WithEF sets the candidate list size used during search. Unlike the other
// graph parameters it overrides a persisted value.
func WithEF(ef int) Option {
	return func(o *options) {
		o.ef = ef
		o.efSet = true
	}
}

// WithMetaFields sets the metadata fields kept per identifier. Other fields
// are dropped on upsert.
func WithMetaFields(fields ...string) Option {
	return func(o *options) {
		o.metaFields = append([]string(nil), fields...)
	}
}

// WithCompression sets the snapshot compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec sets the codec for the metadata section of new snapshots.
// Loading always uses the codec recorded in the snapshot.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithEmbedBatchSize sets the number of texts per embedder call.
func WithEmbedBatchSize(n int) Option {
	return func(o *options) {
		o.embedBatchSize = n
	}
}

// WithEmbedConcurrency sets the number of embedder calls in flight.
func WithEmbedConcurrency(n int) Option {
	return func(o *options) {
		o.embedConcurrency = n
	}
}

// WithEmbedMaxInFlightTexts bounds the number of texts being embedded at
// once across all concurrent calls. Zero means no bound.
func WithEmbedMaxInFlightTexts(n int) Option {
	return func(o *options) {
		o.embedMaxTexts = n
	}
}

// WithEmbedRateLimit limits embedder calls to perSecond with the given burst.
func WithEmbedRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.embedRate = perSecond
		o.embedBurst = burst
	}
}

// WithLogger sets a custom logger for the store.
//
// Example:
//
//	logger := vecstore.NewJSONLogger(slog.LevelDebug)
//	store, _ := vecstore.Open(ctx, embedder, vecstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel enables text logging to stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metrics = mc
		}
	}
}

// WithRandomSeed makes graph construction reproducible.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.randomSeed = &seed
	}
}

// WithFlushOnClose makes Close write a snapshot when there are unflushed
// changes.
func WithFlushOnClose() Option {
	return func(o *options) {
		o.flushOnClose = true
	}
}
