package embeddings

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	embedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "beamd_embeddings_duration_seconds",
		Help: "Latency of embedding requests.",
	}, []string{"provider", "op"})

	embedBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "beamd_embeddings_batch_size",
		Help:    "Texts per embedding batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"provider"})

	embedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beamd_embeddings_errors_total",
		Help: "Failed embedding requests.",
	}, []string{"provider", "op"})
)

// metricsProvider wraps a Provider with prometheus instrumentation.
type metricsProvider struct {
	inner Provider
	name  string
}

func withMetrics(inner Provider, name string) Provider {
	return &metricsProvider{inner: inner, name: name}
}

func (m *metricsProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := m.inner.EmbedDocuments(ctx, texts)
	embedDuration.WithLabelValues(m.name, "documents").Observe(time.Since(start).Seconds())
	embedBatchSize.WithLabelValues(m.name).Observe(float64(len(texts)))
	if err != nil {
		embedErrors.WithLabelValues(m.name, "documents").Inc()
	}
	return vectors, err
}

func (m *metricsProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := m.inner.EmbedQuery(ctx, text)
	embedDuration.WithLabelValues(m.name, "query").Observe(time.Since(start).Seconds())
	if err != nil {
		embedErrors.WithLabelValues(m.name, "query").Inc()
	}
	return vector, err
}

func (m *metricsProvider) Dimension() int {
	return m.inner.Dimension()
}
