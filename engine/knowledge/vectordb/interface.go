package vectordb

import (
	"context"
	"errors"
)

const (
	ProviderPGVector = "pgvector"
	ProviderRedis    = "redis"
	ProviderMemory   = "memory"

	defaultTopK = 3
)

var (
	ErrDimensionMismatch = errors.New("vectordb: embedding dimension mismatch")
	errMissingVideoID    = errors.New("vectordb: video id is required")
)

// Chunk is one indexed time window of a video transcript.
type Chunk struct {
	ID        string    `json:"chunkId"`
	VideoID   string    `json:"videoId"`
	UserID    string    `json:"userId,omitempty"`
	StartSec  int       `json:"startSec"`
	EndSec    int       `json:"endSec"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

// Match is a chunk returned by similarity search with its cosine similarity.
type Match struct {
	Chunk
	Score float64 `json:"score"`
}

// SearchOptions bounds a similarity search.
type SearchOptions struct {
	TopK     int
	MinScore float64
}

// Store persists chunks keyed by chunk ID and searches them per video.
type Store interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, videoID string, query []float32, opts SearchOptions) ([]Match, error)
	Count(ctx context.Context, videoID string) (int, error)
	ListByVideo(ctx context.Context, videoID string) ([]Chunk, error)
	DeleteByVideo(ctx context.Context, videoID string) error
	Close(ctx context.Context) error
}

// Config selects and configures the backing store.
type Config struct {
	Provider    string
	Dimension   int
	Table       string
	KeyPrefix   string
	EnsureIndex bool
}

func topKOrDefault(k int) int {
	if k <= 0 {
		return defaultTopK
	}
	return k
}
