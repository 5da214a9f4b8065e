package selector

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce    sync.Once
	decisionsTotal metric.Int64Counter
)

func recordDecision(ctx context.Context, d Decision) {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("tubechat.knowledge.selector")
		decisionsTotal, _ = meter.Int64Counter(
			"tubechat_selector_decisions_total",
			metric.WithDescription("Context selection decisions by mode and reason"),
		)
	})
	if decisionsTotal == nil {
		return
	}
	decisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(d.Mode)),
		attribute.String("reason", d.Reason),
	))
}
