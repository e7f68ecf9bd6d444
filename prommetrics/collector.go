// Package prommetrics exports vecstore metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/hupe1980/vecstore"
	"github.com/prometheus/client_golang/prometheus"
)

var _ vecstore.MetricsCollector = (*Collector)(nil)

// Collector implements vecstore.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	items      *prometheus.CounterVec
	topK       prometheus.Histogram
	flushBytes prometheus.Gauge
	embedTexts prometheus.Counter
}

// New creates a Collector and registers its metrics with reg. A nil reg
// uses prometheus.DefaultRegisterer. constLabels are attached to every
// metric, typically {"namespace": ...}.
func New(reg prometheus.Registerer, constLabels prometheus.Labels) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "vecstore",
			Name:        "operation_duration_seconds",
			Help:        "Latency of store operations.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"op", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "vecstore",
			Name:        "upserted_items_total",
			Help:        "Identifiers written by upserts, split into added and replaced.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		topK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "vecstore",
			Name:        "query_top_k",
			Help:        "Requested number of neighbors per query.",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
			ConstLabels: constLabels,
		}),
		flushBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "vecstore",
			Name:        "snapshot_bytes",
			Help:        "Size of the last snapshot written.",
			ConstLabels: constLabels,
		}),
		embedTexts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "vecstore",
			Name:        "embedded_texts_total",
			Help:        "Texts sent to the embedder.",
			ConstLabels: constLabels,
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.items, c.topK, c.flushBytes, c.embedTexts} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}

// RecordUpsert implements vecstore.MetricsCollector.
func (c *Collector) RecordUpsert(count, added int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("upsert", status(err)).Observe(d.Seconds())

	if err == nil {
		c.items.WithLabelValues("added").Add(float64(added))
		c.items.WithLabelValues("replaced").Add(float64(count - added))
	}
}

// RecordQuery implements vecstore.MetricsCollector.
func (c *Collector) RecordQuery(topK, _ int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("query", status(err)).Observe(d.Seconds())
	c.topK.Observe(float64(topK))
}

// RecordFlush implements vecstore.MetricsCollector.
func (c *Collector) RecordFlush(bytes int64, d time.Duration, err error) {
	c.opLatency.WithLabelValues("flush", status(err)).Observe(d.Seconds())

	if err == nil {
		c.flushBytes.Set(float64(bytes))
	}
}

// RecordEmbed implements vecstore.MetricsCollector.
func (c *Collector) RecordEmbed(texts int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("embed", status(err)).Observe(d.Seconds())
	c.embedTexts.Add(float64(texts))
}
