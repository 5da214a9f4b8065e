package indexer

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce   sync.Once
	chunksTotal   metric.Int64Counter
	jobDurationHg metric.Float64Histogram
)

func recordJob(ctx context.Context, r Report, elapsed time.Duration) {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("tubechat.knowledge.indexer")
		chunksTotal, _ = meter.Int64Counter(
			"tubechat_indexer_chunks_total",
			metric.WithDescription("Chunks processed by outcome"),
		)
		jobDurationHg, _ = meter.Float64Histogram(
			"tubechat_indexer_job_seconds",
			metric.WithDescription("Duration of one video indexing job"),
			metric.WithUnit("s"),
		)
	})
	if chunksTotal != nil {
		chunksTotal.Add(ctx, int64(r.Indexed), metric.WithAttributes(attribute.String("outcome", "indexed")))
		chunksTotal.Add(ctx, int64(r.Failed), metric.WithAttributes(attribute.String("outcome", "failed")))
	}
	if jobDurationHg != nil {
		jobDurationHg.Record(ctx, elapsed.Seconds())
	}
}
