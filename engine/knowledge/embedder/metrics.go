package embedder

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	cacheMetricsOnce sync.Once
	cacheLookups     metric.Int64Counter
)

func recordCache(ctx context.Context, hit bool) {
	cacheMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("tubechat.knowledge.embedder")
		cacheLookups, _ = meter.Int64Counter(
			"tubechat_embedder_cache_lookups_total",
			metric.WithDescription("Embedding cache lookups by outcome"),
		)
	})
	if cacheLookups == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
