package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File reads <dir>/<videoID>.vtt and an optional <dir>/<videoID>.json metadata file.
type File struct {
	dir string
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) Fetch(_ context.Context, videoID string) (*Captions, error) {
	if !ValidVideoID(videoID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVideo, videoID)
	}
	raw, err := os.ReadFile(filepath.Join(f.dir, videoID+".vtt"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoCaptions, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	caps := &Captions{VideoID: videoID, Raw: string(raw)}
	meta, err := os.ReadFile(filepath.Join(f.dir, videoID+".json"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read metadata: %w", err)
	default:
		if err := json.Unmarshal(meta, &caps.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return caps, nil
}
