package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tubechat/tubechat/engine/knowledge/indexer"
	"github.com/tubechat/tubechat/pkg/config"
)

const cliUserID = "cli"

// withApp wires the runtime for one command and drains it afterwards, which
// lets background indexing started by the command finish.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	closeCtx := context.WithoutCancel(ctx)
	if cfg.Indexer.JobTimeout > 0 {
		var cancel context.CancelFunc
		closeCtx, cancel = context.WithTimeout(closeCtx, cfg.Indexer.JobTimeout)
		defer cancel()
	}
	if err := a.Close(closeCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func ProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <url|video-id>",
		Short: "Fetch, normalize, store and index a video transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cmd.Flags().GetString("user")
			if err != nil {
				return fmt.Errorf("failed to get user flag: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.videos.Process(ctx, args[0], user).Unpack()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
	cmd.Flags().String("user", cliUserID, "User the request is recorded for")
	return cmd
}

func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <video-id>",
		Short: "Embed and store the chunks of a processed video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := cmd.Flags().GetString("user")
			if err != nil {
				return fmt.Errorf("failed to get user flag: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.videos.Get(ctx, args[0]).Unpack()
				if err != nil {
					return err
				}
				report, err := a.indexer.Index(ctx, indexer.Job{
					VideoID: rec.VideoID,
					UserID:  user,
					Blocks:  rec.TranscriptBlocks,
				}).Unpack()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().String("user", cliUserID, "User the chunks are indexed for")
	return cmd
}

func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <video-id> <question>",
		Short: "Ask a question about a processed video",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return fmt.Errorf("failed to get json flag: %w", err)
			}
			question := strings.Join(args[1:], " ")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				reply, err := a.videos.Ask(ctx, args[0], nil, question).Unpack()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), reply)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
				return err
			})
		},
	}
	cmd.Flags().Bool("json", false, "Print the reply with its selection mode as JSON")
	return cmd
}
