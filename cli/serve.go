package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tubechat/tubechat/engine/infra/server"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/logger"
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Host interface to bind")
	cmd.Flags().Int("port", 0, "Port to listen on")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer done()
		_ = a.Close(shutdownCtx)
	}()

	srv, err := server.NewServer(ctx, &cfg.Server, server.Options{
		Videos:     a.videos,
		Monitoring: a.monitoring,
		Health:     a.healthChecks(),
	})
	if err != nil {
		return err
	}
	log.Info("Starting tubechat",
		"environment", cfg.Runtime.Environment,
		"vectordb", cfg.VectorDB.Provider,
		"source", cfg.Source.Provider,
	)
	return srv.Run(ctx)
}
