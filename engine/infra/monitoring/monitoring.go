package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "tubechat"

// Service owns the meter provider and the prometheus registry behind /metrics.
type Service struct {
	meter       metric.Meter
	provider    *sdkmetric.MeterProvider
	registry    *prom.Registry
	path        string
	initialized bool
}

func newDisabledService(path string) *Service {
	return &Service{meter: noop.NewMeterProvider().Meter(meterName), path: path}
}

func validatePath(path string) error {
	if path == "" || path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %q", path)
	}
	if strings.HasPrefix(path, "/api/") {
		return fmt.Errorf("monitoring path cannot be under /api/")
	}
	return nil
}

func NewService(ctx context.Context, cfg *config.MonitoringConfig) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = &config.MonitoringConfig{Path: "/metrics"}
	}
	if err := validatePath(cfg.Path); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg.Path), nil
	}
	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	svc := &Service{
		meter:       provider.Meter(meterName),
		provider:    provider,
		registry:    registry,
		path:        cfg.Path,
		initialized: true,
	}
	initBuildInfo(ctx, svc.meter)
	log.Info("Monitoring service initialized", "path", cfg.Path)
	return svc, nil
}

// NewServiceWithFallback degrades to a no-op service instead of failing startup.
func NewServiceWithFallback(ctx context.Context, cfg *config.MonitoringConfig) *Service {
	svc, err := NewService(ctx, cfg)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		return newDisabledService("/metrics")
	}
	return svc
}

func (s *Service) Meter() metric.Meter { return s.meter }

func (s *Service) Path() string { return s.path }

func (s *Service) IsInitialized() bool { return s.initialized }

// SetAsGlobal makes package-level instruments across the engine report here.
func (s *Service) SetAsGlobal() {
	if s.provider != nil {
		otel.SetMeterProvider(s.provider)
	}
}

func (s *Service) GinMiddleware() gin.HandlerFunc {
	if !s.initialized {
		return func(c *gin.Context) { c.Next() }
	}
	return HTTPMetrics(s.meter)
}

// ExporterHandler serves the prometheus exposition format.
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Monitoring service not initialized")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}
