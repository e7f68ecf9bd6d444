package prommetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/vecstore"
	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns sample values keyed by metric name and label values.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "namespace" {
					continue
				}

				key += "/" + lp.GetValue()
			}

			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	return out
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := New(reg, prometheus.Labels{"namespace": "test"})
	require.NoError(t, err)

	c.RecordUpsert(5, 3, time.Millisecond, nil)
	c.RecordUpsert(2, 0, time.Millisecond, errors.New("boom"))
	c.RecordQuery(10, 4, time.Millisecond, nil)
	c.RecordFlush(1234, time.Millisecond, nil)
	c.RecordEmbed(7, time.Millisecond, nil)

	got := gathered(t, reg)

	assert.Equal(t, 3.0, got["vecstore_upserted_items_total/added"])
	assert.Equal(t, 2.0, got["vecstore_upserted_items_total/replaced"])
	assert.Equal(t, 1.0, got["vecstore_operation_duration_seconds/upsert/ok"])
	assert.Equal(t, 1.0, got["vecstore_operation_duration_seconds/upsert/error"])
	assert.Equal(t, 1.0, got["vecstore_operation_duration_seconds/query/ok"])
	assert.Equal(t, 1.0, got["vecstore_query_top_k"])
	assert.Equal(t, 1234.0, got["vecstore_snapshot_bytes"])
	assert.Equal(t, 7.0, got["vecstore_embedded_texts_total"])
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg, nil)
	require.NoError(t, err)

	_, err = New(reg, nil)
	assert.Error(t, err)
}

func TestWithStore(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	c, err := New(reg, prometheus.Labels{"namespace": "chunks"})
	require.NoError(t, err)

	store, err := vecstore.Open(ctx, testutil.NewHashEmbedder(16),
		vecstore.WithBlobStore(blobstore.NewMemoryStore()),
		vecstore.WithNamespace("chunks"),
		vecstore.WithMetricsCollector(c),
	)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, map[string]vecstore.Record{
		"a": {Content: "alice likes apples"},
		"b": {Content: "bob rides bikes"},
	}))
	require.NoError(t, store.Upsert(ctx, map[string]vecstore.Record{
		"a": {Content: "alice likes pears"},
	}))

	_, err = store.Query(ctx, "apples", 1)
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	got := gathered(t, reg)

	assert.Equal(t, 2.0, got["vecstore_upserted_items_total/added"])
	assert.Equal(t, 1.0, got["vecstore_upserted_items_total/replaced"])
	assert.Equal(t, 4.0, got["vecstore_embedded_texts_total"])
	assert.Equal(t, 1.0, got["vecstore_operation_duration_seconds/flush/ok"])
	assert.Positive(t, got["vecstore_snapshot_bytes"])
}
