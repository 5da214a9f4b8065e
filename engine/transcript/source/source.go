package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tubechat/tubechat/engine/core"
)

var (
	ErrNoCaptions   = errors.New("source: no captions available")
	ErrInvalidVideo = errors.New("source: invalid video reference")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Metadata describes the video a caption document belongs to.
type Metadata struct {
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail"`
}

// Captions is a raw WebVTT document plus video metadata.
type Captions struct {
	VideoID  string
	Language string
	Raw      string
	Metadata Metadata
}

// Source fetches caption documents by video ID.
type Source interface {
	Fetch(ctx context.Context, videoID string) (*Captions, error)
}

func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ExtractVideoID accepts a bare ID or a watch, short, embed, live or youtu.be URL.
func ExtractVideoID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ValidVideoID(ref) {
		return ref, nil
	}
	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideo, ref)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live" || parts[0] == "v") {
			id = parts[1]
		}
	}
	if !ValidVideoID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideo, ref)
	}
	return id, nil
}

func firstSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Classify maps source errors onto result kinds.
func Classify(err error) core.Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidVideo):
		return core.KindInvalidInput
	case errors.Is(err, ErrNoCaptions):
		return core.KindNoTranscript
	default:
		return core.KindUnavailable
	}
}
