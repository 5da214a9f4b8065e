package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubechat/tubechat/pkg/config"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:01.000 --> 00:00:03.000
hello world

00:00:15.000 --> 00:00:17.000
second thought

00:00:45.000 --> 00:00:47.000
closing words
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTranscriptCmd(t *testing.T) {
	t.Run("Should bucket with the window from the YAML file", func(t *testing.T) {
		dir := t.TempDir()
		vtt := writeFile(t, dir, "video.vtt", sampleVTT)
		cfgPath := writeFile(t, dir, "tubechat.yaml", "transcript:\n  window_size: 60\n")

		out, err := runRoot(t, "transcript", vtt, "--config", cfgPath, "--env-file", "")
		require.NoError(t, err)

		var got transcriptOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "hello world second thought closing words", got.Plain)
		require.Len(t, got.Blocks, 1)
		assert.Equal(t, "00:00:00", got.Blocks[0].Start)
	})

	t.Run("Should let CLI flags override the YAML file", func(t *testing.T) {
		dir := t.TempDir()
		vtt := writeFile(t, dir, "video.vtt", sampleVTT)
		cfgPath := writeFile(t, dir, "tubechat.yaml", "transcript:\n  window_size: 60\n")

		out, err := runRoot(t, "transcript", vtt, "--config", cfgPath, "--env-file", "", "--window-size", "10")
		require.NoError(t, err)

		var got transcriptOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got.Blocks, 3)
		assert.Equal(t, []string{"00:00:00", "00:00:10", "00:00:40"},
			[]string{got.Blocks[0].Start, got.Blocks[1].Start, got.Blocks[2].Start})
	})

	t.Run("Should print the full transcript text", func(t *testing.T) {
		dir := t.TempDir()
		vtt := writeFile(t, dir, "video.vtt", sampleVTT)

		out, err := runRoot(t, "transcript", vtt, "--config", "", "--env-file", "", "--full")
		require.NoError(t, err)
		assert.Contains(t, out, "hello world")
		assert.Contains(t, out, "closing words")
	})

	t.Run("Should fail on captions without text", func(t *testing.T) {
		dir := t.TempDir()
		vtt := writeFile(t, dir, "empty.vtt", "WEBVTT\nKind: captions\n")

		_, err := runRoot(t, "transcript", vtt, "--config", "", "--env-file", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no_transcript")
	})
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should load the env file and inject config into the context", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, dir, ".env", "OPENAI_CHAT_MODEL=from-dotenv\n")
		t.Cleanup(func() { _ = os.Unsetenv("OPENAI_CHAT_MODEL") })

		var captured *config.Config
		root := RootCmd()
		root.AddCommand(&cobra.Command{
			Use: "show-config",
			RunE: func(cmd *cobra.Command, _ []string) error {
				captured = config.FromContext(cmd.Context())
				return nil
			},
		})
		root.SetArgs([]string{"show-config", "--config", ""})
		require.NoError(t, root.Execute())

		require.NotNil(t, captured)
		assert.Equal(t, "from-dotenv", captured.OpenAI.ChatModel)
	})

	t.Run("Should reject env files outside the working directory", func(t *testing.T) {
		dir := t.TempDir()
		work := filepath.Join(dir, "work")
		require.NoError(t, os.Mkdir(work, 0o700))
		t.Chdir(work)
		writeFile(t, dir, "outside.env", "FOO=bar\n")

		_, err := runRoot(t, "transcript", "missing.vtt", "--config", "", "--env-file", "../outside.env")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside the working directory")
	})
}

func TestExtractCLIFlags(t *testing.T) {
	t.Run("Should only include flags the user changed", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--redis-addr", "cache:6380", "--indexer-workers", "8"}))

		flags := extractCLIFlags(cmd)

		assert.Equal(t, map[string]any{"redis-addr": "cache:6380", "indexer-workers": 8}, flags)
	})
}

func TestIsPathWithinDirectory(t *testing.T) {
	t.Run("Should accept nested paths and the directory itself", func(t *testing.T) {
		assert.True(t, isPathWithinDirectory("/srv/app/.env", "/srv/app"))
		assert.True(t, isPathWithinDirectory("/srv/app", "/srv/app"))
	})
	t.Run("Should reject siblings sharing a prefix", func(t *testing.T) {
		assert.False(t, isPathWithinDirectory("/srv/application/.env", "/srv/app"))
		assert.False(t, isPathWithinDirectory("/srv/.env", "/srv/app"))
	})
}
