package vectordb

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce    sync.Once
	searchLatency  metric.Float64Histogram
	operationsErrs metric.Int64Counter
)

func ensureMetrics() {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("tubechat.knowledge.vectordb")
		searchLatency, _ = meter.Float64Histogram(
			"tubechat_vectordb_search_seconds",
			metric.WithDescription("Chunk similarity search latency"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2),
		)
		operationsErrs, _ = meter.Int64Counter(
			"tubechat_vectordb_errors_total",
			metric.WithDescription("Chunk store operation failures"),
		)
	})
}

// instrumented records latency and failures around a Store.
type instrumented struct {
	Store
	provider string
}

// Instrument wraps store with otel metrics labelled by provider.
func Instrument(store Store, provider string) Store {
	ensureMetrics()
	return &instrumented{Store: store, provider: provider}
}

func (i *instrumented) Search(ctx context.Context, videoID string, query []float32, opts SearchOptions) ([]Match, error) {
	start := time.Now()
	matches, err := i.Store.Search(ctx, videoID, query, opts)
	attrs := metric.WithAttributes(attribute.String("provider", i.provider))
	if searchLatency != nil {
		searchLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if err != nil {
		i.fail(ctx, "search")
	}
	return matches, err
}

func (i *instrumented) Upsert(ctx context.Context, chunks []Chunk) error {
	err := i.Store.Upsert(ctx, chunks)
	if err != nil {
		i.fail(ctx, "upsert")
	}
	return err
}

func (i *instrumented) Count(ctx context.Context, videoID string) (int, error) {
	n, err := i.Store.Count(ctx, videoID)
	if err != nil {
		i.fail(ctx, "count")
	}
	return n, err
}

func (i *instrumented) fail(ctx context.Context, op string) {
	if operationsErrs == nil {
		return
	}
	operationsErrs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", i.provider),
		attribute.String("operation", op),
	))
}
