package cli

import (
	"github.com/spf13/cobra"
	"github.com/tubechat/tubechat/engine/infra/postgres"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/logger"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				dsn := postgres.FromAppConfig(&config.FromContext(ctx).Database).DSN()
				if err := postgres.ApplyMigrationsWithLock(ctx, dsn); err != nil {
					return err
				}
				logger.FromContext(ctx).Info("Migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				dsn := postgres.FromAppConfig(&config.FromContext(ctx).Database).DSN()
				return postgres.MigrationStatus(ctx, dsn)
			},
		},
	)
	return cmd
}
