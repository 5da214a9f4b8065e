package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tubechat/tubechat/engine/transcript"
	"github.com/tubechat/tubechat/pkg/config"
)

type transcriptOutput struct {
	Plain  string                 `json:"plain"`
	Timed  string                 `json:"timed"`
	Blocks []transcript.TimeBlock `json:"blocks"`
}

func TranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <file>",
		Short: "Normalize a local caption file and print plain, timed and block forms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			out, err := normalizeFile(args[0], cfg.Transcript.WindowSize)
			if err != nil {
				return err
			}
			full, err := cmd.Flags().GetBool("full")
			if err != nil {
				return fmt.Errorf("failed to get full flag: %w", err)
			}
			if full {
				_, err := fmt.Fprintln(
					cmd.OutOrStdout(),
					transcript.FullTranscript(out.Blocks, nil, cfg.Transcript.MaxChars),
				)
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Bool("full", false, "Print the bounded full transcript instead of JSON")
	return cmd
}

func normalizeFile(path string, windowSize int) (*transcriptOutput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption file: %w", err)
	}
	n, err := transcript.Normalize(string(raw), windowSize).Unpack()
	if err != nil {
		return nil, err
	}
	return &transcriptOutput{Plain: n.Plain, Timed: n.Timed, Blocks: n.Blocks}, nil
}
