package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	videos    map[string]map[string]Chunk
}

// NewMemoryStore returns a process-local store for development and tests.
func NewMemoryStore(dimension int) Store {
	return &memoryStore{dimension: dimension, videos: make(map[string]map[string]Chunk)}
}

func (m *memoryStore) Upsert(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if c.VideoID == "" {
			return errMissingVideoID
		}
		if m.dimension > 0 && len(c.Embedding) != m.dimension {
			return fmt.Errorf("%w: chunk %q got %d want %d", ErrDimensionMismatch, c.ID, len(c.Embedding), m.dimension)
		}
		byID, ok := m.videos[c.VideoID]
		if !ok {
			byID = make(map[string]Chunk)
			m.videos[c.VideoID] = byID
		}
		c.Embedding = append([]float32(nil), c.Embedding...)
		byID[c.ID] = c
	}
	return nil
}

func (m *memoryStore) Search(_ context.Context, videoID string, query []float32, opts SearchOptions) ([]Match, error) {
	if videoID == "" {
		return nil, errMissingVideoID
	}
	if m.dimension > 0 && len(query) != m.dimension {
		return nil, fmt.Errorf("%w: query got %d want %d", ErrDimensionMismatch, len(query), m.dimension)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := make([]Match, 0, len(m.videos[videoID]))
	for _, c := range m.videos[videoID] {
		score := CosineSimilarity(query, c.Embedding)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		matches = append(matches, Match{Chunk: c, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if topK := topKOrDefault(opts.TopK); len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *memoryStore) Count(_ context.Context, videoID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.videos[videoID]), nil
}

func (m *memoryStore) ListByVideo(_ context.Context, videoID string) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := make([]Chunk, 0, len(m.videos[videoID]))
	for _, c := range m.videos[videoID] {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartSec < chunks[j].StartSec })
	return chunks, nil
}

func (m *memoryStore) DeleteByVideo(_ context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, videoID)
	return nil
}

func (m *memoryStore) Close(context.Context) error {
	return nil
}

// CosineSimilarity returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
