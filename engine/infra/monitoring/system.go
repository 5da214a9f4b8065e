package monitoring

import (
	"context"
	"runtime"
	"runtime/debug"

	"github.com/tubechat/tubechat/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Set via -ldflags "-X github.com/tubechat/tubechat/engine/infra/monitoring.Version=v1.0.0".
var (
	Version    = "unknown"
	CommitHash = "unknown"
)

func initBuildInfo(ctx context.Context, meter metric.Meter) {
	gauge, err := meter.Float64Gauge(
		"tubechat_build_info",
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create build info gauge", "error", err)
		return
	}
	version := Version
	if info, ok := debug.ReadBuildInfo(); ok && version == "unknown" && info.Main.Version != "" {
		version = info.Main.Version
	}
	gauge.Record(ctx, 1, metric.WithAttributes(
		attribute.String("version", version),
		attribute.String("commit_hash", CommitHash),
		attribute.String("go_version", runtime.Version()),
	))
}
