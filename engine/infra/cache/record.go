package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tubechat/tubechat/engine/transcript"
	"github.com/tubechat/tubechat/pkg/logger"
)

const (
	defaultTTL       = 24 * time.Hour
	defaultKeyPrefix = "tubechat:record:"
	bytesPerMiB      = 1 << 20
)

// RecordSource is the authoritative store behind the cache.
type RecordSource interface {
	Get(ctx context.Context, videoID string) (*transcript.Record, error)
	Upsert(ctx context.Context, rec *transcript.Record) error
	Delete(ctx context.Context, videoID string) error
}

type RecordOptions struct {
	TTL         time.Duration
	KeyPrefix   string
	LocalMaxMiB int64
}

// Records is a read-through cache in front of a RecordSource. Tier 1 is an
// in-process ristretto cache, tier 2 is redis shared across replicas.
type Records struct {
	source RecordSource
	local  *ristretto.Cache[string, *transcript.Record]
	redis  redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRecords(source RecordSource, client redis.UniversalClient, opts RecordOptions) (*Records, error) {
	if source == nil {
		return nil, errors.New("cache: record source is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	c := &Records{source: source, redis: client, ttl: opts.TTL, prefix: opts.KeyPrefix}
	if opts.LocalMaxMiB > 0 {
		maxCost := opts.LocalMaxMiB * bytesPerMiB
		local, err := ristretto.NewCache(&ristretto.Config[string, *transcript.Record]{
			NumCounters: 10_000,
			MaxCost:     maxCost,
			BufferItems: 64,
			Metrics:     true,
		})
		if err != nil {
			return nil, fmt.Errorf("cache: create local tier: %w", err)
		}
		c.local = local
	}
	return c, nil
}

func (c *Records) key(videoID string) string {
	return c.prefix + videoID
}

// Get serves from the local tier, then redis, then the source, filling tiers on the way back.
func (c *Records) Get(ctx context.Context, videoID string) (*transcript.Record, error) {
	log := logger.FromContext(ctx)
	if c.local != nil {
		if rec, ok := c.local.Get(videoID); ok {
			recordLookup(ctx, "local")
			return rec, nil
		}
	}
	if c.redis != nil {
		raw, err := c.redis.Get(ctx, c.key(videoID)).Bytes()
		switch {
		case err == nil:
			var rec transcript.Record
			if jerr := json.Unmarshal(raw, &rec); jerr == nil {
				recordLookup(ctx, "redis")
				c.setLocal(&rec)
				return &rec, nil
			}
			log.Warn("Discarding undecodable cached record", "video_id", videoID)
		case !errors.Is(err, redis.Nil):
			log.Warn("Record cache read failed", "video_id", videoID, "error", err)
		}
	}
	recordLookup(ctx, "miss")
	rec, err := c.source.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, rec)
	return rec, nil
}

// Upsert writes through to the source and refreshes both tiers.
func (c *Records) Upsert(ctx context.Context, rec *transcript.Record) error {
	if err := c.source.Upsert(ctx, rec); err != nil {
		return err
	}
	c.fill(ctx, rec)
	return nil
}

func (c *Records) Delete(ctx context.Context, videoID string) error {
	c.Invalidate(ctx, videoID)
	return c.source.Delete(ctx, videoID)
}

// Invalidate drops the record from both tiers.
func (c *Records) Invalidate(ctx context.Context, videoID string) {
	if c.local != nil {
		c.local.Del(videoID)
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, c.key(videoID)).Err(); err != nil {
			logger.FromContext(ctx).Warn("Record cache invalidation failed", "video_id", videoID, "error", err)
		}
	}
}

func (c *Records) fill(ctx context.Context, rec *transcript.Record) {
	c.setLocal(rec)
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.key(rec.VideoID), raw, c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("Record cache write failed", "video_id", rec.VideoID, "error", err)
	}
}

func (c *Records) setLocal(rec *transcript.Record) {
	if c.local == nil {
		return
	}
	c.local.SetWithTTL(rec.VideoID, rec, recordCost(rec), c.ttl)
	c.local.Wait()
}

func recordCost(rec *transcript.Record) int64 {
	cost := len(rec.TranscriptPlain) + len(rec.TranscriptTimed) + len(rec.Summary) + len(rec.Title)
	for _, b := range rec.TranscriptBlocks {
		cost += len(b.Text) + len(b.Start) + len(b.End)
	}
	return int64(max(cost, 1))
}

func (c *Records) Close() {
	if c.local != nil {
		c.local.Close()
	}
}
