package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "tubechat:chunks:"

// redisStore keeps one vector set per video so counts and deletes stay per-video.
type redisStore struct {
	client    redis.UniversalClient
	prefix    string
	dimension int
}

type redisChunkAttrs struct {
	VideoID  string `json:"video_id"`
	UserID   string `json:"user_id"`
	StartSec int    `json:"start_sec"`
	EndSec   int    `json:"end_sec"`
	Text     string `json:"text"`
}

// NewRedisStore builds a store on top of redis vector sets.
func NewRedisStore(client redis.UniversalClient, cfg *Config) Store {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &redisStore{client: client, prefix: prefix, dimension: cfg.Dimension}
}

func (r *redisStore) key(videoID string) string {
	return r.prefix + videoID
}

func (r *redisStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, c := range chunks {
		if c.VideoID == "" {
			return errMissingVideoID
		}
		if len(c.Embedding) != r.dimension {
			return fmt.Errorf("%w: chunk %q got %d want %d", ErrDimensionMismatch, c.ID, len(c.Embedding), r.dimension)
		}
		attrs, err := json.Marshal(attrsFromChunk(c))
		if err != nil {
			return fmt.Errorf("redis: encode attributes for %q: %w", c.ID, err)
		}
		key := r.key(c.VideoID)
		pipe.VAdd(ctx, key, c.ID, &redis.VectorValues{Val: float32ToFloat64(c.Embedding)})
		pipe.VSetAttr(ctx, key, c.ID, string(attrs))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: upsert pipeline: %w", err)
	}
	return nil
}

func (r *redisStore) Search(ctx context.Context, videoID string, query []float32, opts SearchOptions) ([]Match, error) {
	if videoID == "" {
		return nil, errMissingVideoID
	}
	if len(query) != r.dimension {
		return nil, fmt.Errorf("%w: query got %d want %d", ErrDimensionMismatch, len(query), r.dimension)
	}
	results, err := r.client.VSimWithArgsWithScores(
		ctx,
		r.key(videoID),
		&redis.VectorValues{Val: float32ToFloat64(query)},
		&redis.VSimArgs{Count: int64(topKOrDefault(opts.TopK))},
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: similarity search: %w", err)
	}
	names := make([]string, len(results))
	for i := range results {
		names[i] = results[i].Name
	}
	chunks, err := r.loadChunks(ctx, videoID, names)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(results))
	for i, item := range results {
		if chunks[i] == nil {
			continue
		}
		score := cosineFromRedisScore(item.Score)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		matches = append(matches, Match{Chunk: *chunks[i], Score: score})
	}
	return matches, nil
}

func (r *redisStore) Count(ctx context.Context, videoID string) (int, error) {
	if videoID == "" {
		return 0, errMissingVideoID
	}
	n, err := r.client.VCard(ctx, r.key(videoID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: vcard: %w", err)
	}
	return int(n), nil
}

func (r *redisStore) ListByVideo(ctx context.Context, videoID string) ([]Chunk, error) {
	total, err := r.Count(ctx, videoID)
	if err != nil || total == 0 {
		return []Chunk{}, err
	}
	anchor := make([]float64, r.dimension)
	anchor[0] = 1
	names, err := r.client.VSimWithArgs(
		ctx,
		r.key(videoID),
		&redis.VectorValues{Val: anchor},
		&redis.VSimArgs{Count: int64(total)},
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list members: %w", err)
	}
	loaded, err := r.loadChunks(ctx, videoID, names)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, 0, len(loaded))
	for _, c := range loaded {
		if c != nil {
			chunks = append(chunks, *c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartSec < chunks[j].StartSec })
	return chunks, nil
}

func (r *redisStore) DeleteByVideo(ctx context.Context, videoID string) error {
	if videoID == "" {
		return errMissingVideoID
	}
	if err := r.client.Del(ctx, r.key(videoID)).Err(); err != nil {
		return fmt.Errorf("redis: delete vectors: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (r *redisStore) Close(context.Context) error {
	return nil
}

// loadChunks returns one entry per name, nil when the attributes are missing.
func (r *redisStore) loadChunks(ctx context.Context, videoID string, names []string) ([]*Chunk, error) {
	if len(names) == 0 {
		return nil, nil
	}
	key := r.key(videoID)
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.VGetAttr(ctx, key, name)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: fetch attributes: %w", err)
	}
	out := make([]*Chunk, len(names))
	for i, cmd := range cmds {
		raw, err := cmd.Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("redis: read attributes for %q: %w", names[i], err)
		}
		c, err := chunkFromAttrs(names[i], raw)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func attrsFromChunk(c Chunk) redisChunkAttrs {
	return redisChunkAttrs{
		VideoID:  c.VideoID,
		UserID:   c.UserID,
		StartSec: c.StartSec,
		EndSec:   c.EndSec,
		Text:     c.Text,
	}
}

func chunkFromAttrs(id, payload string) (*Chunk, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	var attrs redisChunkAttrs
	if err := json.Unmarshal([]byte(payload), &attrs); err != nil {
		return nil, fmt.Errorf("redis: parse attributes for %q: %w", id, err)
	}
	return &Chunk{
		ID:       id,
		VideoID:  attrs.VideoID,
		UserID:   attrs.UserID,
		StartSec: attrs.StartSec,
		EndSec:   attrs.EndSec,
		Text:     attrs.Text,
	}, nil
}

// cosineFromRedisScore maps the VSIM score in [0,1] back to cosine similarity in [-1,1].
func cosineFromRedisScore(score float64) float64 {
	return score*2 - 1
}

func float32ToFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = float64(values[i])
	}
	return out
}
