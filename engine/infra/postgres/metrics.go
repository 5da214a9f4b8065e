package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const postgresMeterName = "tubechat.postgres"

var (
	postgresMetricsOnce sync.Once
	postgresMetricsErr  error
	postgresPools       sync.Map
)

type poolMetrics struct {
	label string
	pool  *pgxpool.Pool
}

func registerPoolMetrics(cfg *Config, pool *pgxpool.Pool) (*poolMetrics, error) {
	postgresMetricsOnce.Do(func() {
		postgresMetricsErr = initPoolGauges(otel.GetMeterProvider().Meter(postgresMeterName))
	})
	if postgresMetricsErr != nil {
		return nil, fmt.Errorf("postgres: init metrics: %w", postgresMetricsErr)
	}
	pm := &poolMetrics{label: poolLabel(cfg), pool: pool}
	postgresPools.Store(pm, pm)
	return pm, nil
}

func (p *poolMetrics) unregister() {
	if p == nil {
		return
	}
	postgresPools.Delete(p)
}

func initPoolGauges(meter metric.Meter) error {
	open, err := meter.Int64ObservableGauge(
		"tubechat_postgres_connections_open",
		metric.WithDescription("Number of open Postgres connections"),
	)
	if err != nil {
		return err
	}
	inUse, err := meter.Int64ObservableGauge(
		"tubechat_postgres_connections_in_use",
		metric.WithDescription("Number of Postgres connections currently in use"),
	)
	if err != nil {
		return err
	}
	idle, err := meter.Int64ObservableGauge(
		"tubechat_postgres_connections_idle",
		metric.WithDescription("Number of idle Postgres connections"),
	)
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		postgresPools.Range(func(_, value any) bool {
			pm, ok := value.(*poolMetrics)
			if !ok || pm.pool == nil {
				return true
			}
			stats := pm.pool.Stat()
			attrs := metric.WithAttributes(attribute.String("pool", pm.label))
			o.ObserveInt64(open, int64(stats.TotalConns()), attrs)
			o.ObserveInt64(inUse, int64(stats.AcquiredConns()), attrs)
			o.ObserveInt64(idle, int64(stats.IdleConns()), attrs)
			return true
		})
		return nil
	}, open, inUse, idle)
	return err
}

func poolLabel(cfg *Config) string {
	parts := make([]string, 0, 2)
	for _, c := range []string{cfg.Host, cfg.DBName} {
		if c = strings.TrimSpace(strings.ToLower(c)); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "-")
}
