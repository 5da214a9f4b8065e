package cli

import (
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "tubechat.yaml"
	defaultEnvFile    = ".env"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tubechat",
		Short:         "Chat with YouTube videos through their transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the YAML configuration file")
	flags.String("env-file", defaultEnvFile, "Path to a .env file loaded before configuration")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.Bool("log-source", false, "Include source code location in logs")

	flags.String("db-conn-string", "", "PostgreSQL connection string")
	flags.String("redis-addr", "", "Redis address (host:port)")
	flags.String("vectordb-provider", "", "Chunk store provider (pgvector, redis, memory)")
	flags.String("source-provider", "", "Caption source (ytdlp, file)")
	flags.String("source-dir", "", "Directory of caption files for the file source")
	flags.Int("window-size", 0, "Transcript block window in seconds")
	flags.Int("indexer-workers", 0, "Number of concurrent indexing workers")

	root.AddCommand(
		ServeCmd(),
		MigrateCmd(),
		TranscriptCmd(),
		ProcessCmd(),
		IndexCmd(),
		AskCmd(),
	)

	return root
}
