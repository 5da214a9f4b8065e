package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tubechat/tubechat/engine/infra/monitoring"
	"github.com/tubechat/tubechat/engine/infra/server/routes"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/logger"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	httpIdleTimeout        = 60 * time.Second
)

type Options struct {
	Videos     VideoService
	Monitoring *monitoring.Service
	Health     map[string]HealthChecker
}

type Server struct {
	cfg        *config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(ctx context.Context, cfg *config.ServerConfig, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if opts.Videos == nil {
		return nil, errors.New("server: video service is required")
	}
	router := NewRouter(ctx, opts)
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &Server{
		cfg:    cfg,
		router: router,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       httpIdleTimeout,
		},
	}, nil
}

// NewRouter builds the gin engine with middleware and API routes.
func NewRouter(ctx context.Context, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestContext(logger.FromContext(ctx)))
	if opts.Monitoring != nil {
		router.Use(opts.Monitoring.GinMiddleware())
		router.GET(opts.Monitoring.Path(), gin.WrapH(opts.Monitoring.ExporterHandler()))
	}
	router.Use(LoggerMiddleware())
	router.GET(routes.Health(), healthHandler(opts.Health))
	h := &handlers{videos: opts.Videos}
	videos := router.Group(routes.Videos())
	videos.POST("", h.processVideo)
	videos.GET("/:id", h.getVideo)
	videos.GET("/:id/transcript", h.getTranscript)
	videos.POST("/:id/chat", h.chat)
	return router
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	log.Info("Shutting down HTTP server", "timeout", timeout)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
