package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/pkg/config"
)

const sampleVTT = "WEBVTT\nKind: captions\nLanguage: en\n\n00:00:01.000 --> 00:00:03.000\nhello world\n"

func TestExtractVideoID(t *testing.T) {
	t.Run("Should accept common references", func(t *testing.T) {
		cases := map[string]string{
			"dQw4w9WgXcQ": "dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s": "dQw4w9WgXcQ",
			"youtube.com/watch?v=dQw4w9WgXcQ":                   "dQw4w9WgXcQ",
			"https://youtu.be/dQw4w9WgXcQ?si=abc":               "dQw4w9WgXcQ",
			"https://m.youtube.com/shorts/dQw4w9WgXcQ":          "dQw4w9WgXcQ",
			"https://www.youtube.com/embed/dQw4w9WgXcQ":         "dQw4w9WgXcQ",
			"  https://www.youtube.com/live/dQw4w9WgXcQ  ":      "dQw4w9WgXcQ",
		}
		for in, want := range cases {
			got, err := ExtractVideoID(in)
			require.NoError(t, err, in)
			assert.Equal(t, want, got, in)
		}
	})
	t.Run("Should reject invalid references", func(t *testing.T) {
		for _, in := range []string{"", "short", "https://example.com/watch?v=dQw4w9WgXcQ", "https://youtu.be/", "dQw4w9WgXc!"} {
			_, err := ExtractVideoID(in)
			assert.ErrorIs(t, err, ErrInvalidVideo, in)
		}
	})
}

func TestClassify(t *testing.T) {
	t.Run("Should map errors to kinds", func(t *testing.T) {
		assert.Equal(t, core.KindInvalidInput, Classify(ErrInvalidVideo))
		assert.Equal(t, core.KindNoTranscript, Classify(ErrNoCaptions))
		assert.Equal(t, core.KindUnavailable, Classify(errors.New("boom")))
	})
}

func TestFile_Fetch(t *testing.T) {
	t.Run("Should read captions and metadata", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dQw4w9WgXcQ.vtt"), []byte(sampleVTT), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "dQw4w9WgXcQ.json"),
			[]byte(`{"title":"Demo","duration":212,"thumbnail":"https://i.ytimg.com/x.jpg"}`), 0o600))
		caps, err := NewFile(dir).Fetch(context.Background(), "dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, sampleVTT, caps.Raw)
		assert.Equal(t, "Demo", caps.Metadata.Title)
		assert.Equal(t, 212, caps.Metadata.Duration)
	})
	t.Run("Should report missing captions", func(t *testing.T) {
		_, err := NewFile(t.TempDir()).Fetch(context.Background(), "dQw4w9WgXcQ")
		assert.ErrorIs(t, err, ErrNoCaptions)
	})
	t.Run("Should reject invalid ids", func(t *testing.T) {
		_, err := NewFile(t.TempDir()).Fetch(context.Background(), "../etc/pass")
		assert.ErrorIs(t, err, ErrInvalidVideo)
	})
}

func fakeYTDLP(t *testing.T, subtitles map[string]string, fail int) (*YTDLP, *int) {
	t.Helper()
	y := NewYTDLP(YTDLPOptions{Languages: []string{"en"}, MaxAttempts: 3})
	calls := 0
	y.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		calls++
		if calls <= fail {
			return nil, &CommandError{Err: errors.New("exit status 1"), Stderr: []byte("ERROR: HTTP Error 503")}
		}
		if args[0] == "--dump-json" {
			return []byte(`{"id":"dQw4w9WgXcQ","title":"Demo","duration":212.4,"thumbnail":"https://i.ytimg.com/x.jpg"}`), nil
		}
		var out string
		for i, a := range args {
			if a == "-o" {
				out = args[i+1]
			}
		}
		dir := filepath.Dir(out)
		for lang, body := range subtitles {
			name := strings.NewReplacer("%(id)s", "dQw4w9WgXcQ", "%(ext)s", lang+".vtt").Replace(filepath.Base(out))
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
		}
		return nil, nil
	}
	return y, &calls
}

func TestYTDLP_Fetch(t *testing.T) {
	t.Run("Should download captions in the preferred language", func(t *testing.T) {
		y, _ := fakeYTDLP(t, map[string]string{"de": "WEBVTT\n", "en-orig": sampleVTT}, 0)
		caps, err := y.Fetch(context.Background(), "dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, "en-orig", caps.Language)
		assert.Equal(t, sampleVTT, caps.Raw)
		assert.Equal(t, "Demo", caps.Metadata.Title)
		assert.Equal(t, 212, caps.Metadata.Duration)
	})
	t.Run("Should retry transient failures", func(t *testing.T) {
		y, calls := fakeYTDLP(t, map[string]string{"en": sampleVTT}, 1)
		_, err := y.Fetch(context.Background(), "dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, 3, *calls)
	})
	t.Run("Should report videos without subtitles", func(t *testing.T) {
		y, _ := fakeYTDLP(t, nil, 0)
		_, err := y.Fetch(context.Background(), "dQw4w9WgXcQ")
		assert.ErrorIs(t, err, ErrNoCaptions)
	})
	t.Run("Should not retry unavailable videos", func(t *testing.T) {
		y := NewYTDLP(YTDLPOptions{MaxAttempts: 3})
		calls := 0
		y.run = func(context.Context, string, ...string) ([]byte, error) {
			calls++
			return nil, &CommandError{
				Err:    errors.New("exit status 1"),
				Stderr: []byte("WARNING: [youtube] nsig extraction failed\nERROR: [youtube] dQw4w9WgXcQ: Video unavailable"),
			}
		}
		_, err := y.Fetch(context.Background(), "dQw4w9WgXcQ")
		assert.ErrorIs(t, err, ErrInvalidVideo)
		assert.Contains(t, err.Error(), "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable")
		assert.Equal(t, 1, calls)
	})
	t.Run("Should decode metadata printed after warning lines", func(t *testing.T) {
		y, _ := fakeYTDLP(t, map[string]string{"en": sampleVTT}, 0)
		next := y.run
		y.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			out, err := next(ctx, name, args...)
			if args[0] == "--dump-json" {
				out = append([]byte("WARNING: [youtube] nsig extraction failed\n"), out...)
			}
			return out, err
		}
		caps, err := y.Fetch(context.Background(), "dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, "Demo", caps.Metadata.Title)
		assert.Equal(t, sampleVTT, caps.Raw)
	})
}

func TestExecRunner(t *testing.T) {
	t.Run("Should return stdout without stderr warnings", func(t *testing.T) {
		out, err := execRunner(context.Background(), "sh", "-c", `echo "WARNING: slow" >&2; echo '{"id":"a"}'`)
		require.NoError(t, err)
		assert.Equal(t, "{\"id\":\"a\"}\n", string(out))
	})
	t.Run("Should expose stderr of failed commands", func(t *testing.T) {
		_, err := execRunner(context.Background(), "sh", "-c", `echo "ERROR: Video unavailable" >&2; exit 1`)
		require.Error(t, err)
		var cmdErr *CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.True(t, unavailable(stderrOf(err)))
	})
}

func TestNew(t *testing.T) {
	t.Run("Should build configured providers", func(t *testing.T) {
		src, err := New(&config.SourceConfig{Provider: ProviderFile, Dir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &File{}, src)
		src, err = New(&config.SourceConfig{Provider: ProviderYTDLP})
		require.NoError(t, err)
		assert.IsType(t, &YTDLP{}, src)
		_, err = New(&config.SourceConfig{Provider: "ftp"})
		assert.Error(t, err)
		_, err = New(&config.SourceConfig{Provider: ProviderFile})
		assert.Error(t, err)
	})
}
