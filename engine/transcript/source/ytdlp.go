package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tubechat/tubechat/pkg/logger"
)

// Runner executes an external command and returns its standard output.
// A failed command reports its standard error through a *CommandError.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandError is a non-zero exit together with what the command wrote to stderr.
type CommandError struct {
	Err    error
	Stderr []byte
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- binary comes from configuration, arguments are built here
	out, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &CommandError{Err: err, Stderr: exitErr.Stderr}
	}
	return out, err
}

func stderrOf(err error) []byte {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Stderr
	}
	return nil
}

type YTDLPOptions struct {
	Binary      string
	Languages   []string
	Timeout     time.Duration
	MaxAttempts uint64
}

// YTDLP downloads automatic or uploaded subtitles with the yt-dlp binary.
type YTDLP struct {
	opts YTDLPOptions
	run  Runner
}

func NewYTDLP(opts YTDLPOptions) *YTDLP {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	return &YTDLP{opts: opts, run: execRunner}
}

type ytdlpInfo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
}

func (y *YTDLP) Fetch(ctx context.Context, videoID string) (*Captions, error) {
	if !ValidVideoID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideo, videoID)
	}
	if y.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.opts.Timeout)
		defer cancel()
	}
	log := logger.FromContext(ctx).With("video_id", videoID)
	info, err := y.metadata(ctx, videoID)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "tubechat-subs-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--sub-langs", subLangs(y.opts.Languages),
		"--no-playlist",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		WatchURL(videoID),
	}
	if _, err := y.runWithRetry(ctx, args...); err != nil {
		return nil, err
	}
	path, lang, err := pickSubtitle(dir, videoID, y.opts.Languages)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	log.Debug("Captions downloaded", "language", lang, "bytes", len(raw))
	return &Captions{
		VideoID:  videoID,
		Language: lang,
		Raw:      string(raw),
		Metadata: Metadata{Title: info.Title, Duration: int(info.Duration), ThumbnailURL: info.Thumbnail},
	}, nil
}

func (y *YTDLP) metadata(ctx context.Context, videoID string) (*ytdlpInfo, error) {
	out, err := y.runWithRetry(ctx, "--dump-json", "--skip-download", "--no-playlist", WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	var info ytdlpInfo
	if err := json.Unmarshal(jsonLine(out), &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp metadata: %w", err)
	}
	return &info, nil
}

// jsonLine returns the last line that holds a JSON object. yt-dlp can print
// warnings ahead of the --dump-json payload.
func jsonLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); bytes.HasPrefix(line, []byte("{")) {
			return line
		}
	}
	return out
}

func (y *YTDLP) runWithRetry(ctx context.Context, args ...string) ([]byte, error) {
	backoff := retry.WithMaxRetries(y.opts.MaxAttempts-1, retry.NewExponential(500*time.Millisecond))
	var out []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var runErr error
		out, runErr = y.run(ctx, y.opts.Binary, args...)
		if runErr == nil {
			return nil
		}
		stderr := stderrOf(runErr)
		if unavailable(stderr) {
			return fmt.Errorf("%w: %s", ErrInvalidVideo, firstLine(stderr))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.RetryableError(fmt.Errorf("yt-dlp: %w: %s", runErr, firstLine(stderr)))
	})
	return out, err
}

func unavailable(out []byte) bool {
	s := strings.ToLower(string(out))
	return strings.Contains(s, "video unavailable") ||
		strings.Contains(s, "private video") ||
		strings.Contains(s, "is not a valid url")
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "ERROR") {
			return line
		}
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func subLangs(langs []string) string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		out = append(out, l, l+"-*")
	}
	return strings.Join(out, ",")
}

// pickSubtitle prefers files in the configured language order.
func pickSubtitle(dir, videoID string, langs []string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, videoID+".*.vtt"))
	if err != nil {
		return "", "", fmt.Errorf("list subtitles: %w", err)
	}
	if len(matches) == 0 {
		return "", "", fmt.Errorf("%w: %s", ErrNoCaptions, videoID)
	}
	sort.Strings(matches)
	langOf := func(p string) string {
		name := strings.TrimSuffix(filepath.Base(p), ".vtt")
		return strings.TrimPrefix(name, videoID+".")
	}
	for _, want := range langs {
		for _, m := range matches {
			got := langOf(m)
			if got == want || strings.HasPrefix(got, want+"-") {
				return m, got, nil
			}
		}
	}
	return matches[0], langOf(matches[0]), nil
}
