package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce   sync.Once
	lookupCounter metric.Int64Counter
)

func recordLookup(ctx context.Context, tier string) {
	metricsOnce.Do(func() {
		lookupCounter, _ = otel.GetMeterProvider().Meter("tubechat.cache").Int64Counter(
			"tubechat_record_cache_lookups_total",
			metric.WithDescription("Record cache lookups by serving tier"),
		)
	})
	if lookupCounter != nil {
		lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
	}
}
