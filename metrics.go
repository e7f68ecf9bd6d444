package vecstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordUpsert is called after each upsert batch.
	// count is the batch size, added the number of new identifiers.
	RecordUpsert(count, added int, duration time.Duration, err error)

	// RecordQuery is called after each query.
	// topK is the number of neighbors requested, results the number returned.
	RecordQuery(topK, results int, duration time.Duration, err error)

	// RecordFlush is called after each snapshot write.
	RecordFlush(bytes int64, duration time.Duration, err error)

	// RecordEmbed is called after each call to the embedder.
	RecordEmbed(texts int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpsert(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordFlush(int64, time.Duration, error)     {}
func (NoopMetricsCollector) RecordEmbed(int, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpsertCount      atomic.Int64
	UpsertItems      atomic.Int64
	UpsertAdded      atomic.Int64
	UpsertErrors     atomic.Int64
	UpsertTotalNanos atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	FlushCount       atomic.Int64
	FlushErrors      atomic.Int64
	FlushBytes       atomic.Int64
	EmbedCalls       atomic.Int64
	EmbedTexts       atomic.Int64
	EmbedErrors      atomic.Int64
}

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(count, added int, duration time.Duration, err error) {
	b.UpsertCount.Add(1)
	b.UpsertTotalNanos.Add(duration.Nanoseconds())

	if err != nil {
		b.UpsertErrors.Add(1)
		return
	}

	b.UpsertItems.Add(int64(count))
	b.UpsertAdded.Add(int64(added))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_, _ int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())

	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(bytes int64, _ time.Duration, err error) {
	b.FlushCount.Add(1)

	if err != nil {
		b.FlushErrors.Add(1)
		return
	}

	b.FlushBytes.Store(bytes)
}

// RecordEmbed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEmbed(texts int, _ time.Duration, err error) {
	b.EmbedCalls.Add(1)
	b.EmbedTexts.Add(int64(texts))

	if err != nil {
		b.EmbedErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpsertCount:    b.UpsertCount.Load(),
		UpsertItems:    b.UpsertItems.Load(),
		UpsertAdded:    b.UpsertAdded.Load(),
		UpsertErrors:   b.UpsertErrors.Load(),
		UpsertAvgNanos: avg(b.UpsertTotalNanos.Load(), b.UpsertCount.Load()),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryAvgNanos:  avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		LastFlushBytes: b.FlushBytes.Load(),
		EmbedCalls:     b.EmbedCalls.Load(),
		EmbedTexts:     b.EmbedTexts.Load(),
		EmbedErrors:    b.EmbedErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}

	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpsertCount    int64
	UpsertItems    int64
	UpsertAdded    int64
	UpsertErrors   int64
	UpsertAvgNanos int64
	QueryCount     int64
	QueryErrors    int64
	QueryAvgNanos  int64
	FlushCount     int64
	FlushErrors    int64
	LastFlushBytes int64
	EmbedCalls     int64
	EmbedTexts     int64
	EmbedErrors    int64
}
