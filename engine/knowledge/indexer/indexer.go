package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/engine/knowledge/embedder"
	"github.com/tubechat/tubechat/engine/knowledge/vectordb"
	"github.com/tubechat/tubechat/engine/transcript"
	"github.com/tubechat/tubechat/pkg/logger"
	"golang.org/x/time/rate"
)

// Job asks for the blocks of one video to be embedded and stored.
type Job struct {
	ID      string
	VideoID string
	UserID  string
	Blocks  []transcript.TimeBlock
}

// Report summarizes one indexing run.
type Report struct {
	JobID   string `json:"jobId"`
	Total   int    `json:"total"`
	Indexed int    `json:"indexed"`
	Failed  int    `json:"failed"`
}

// Options tunes the indexer.
type Options struct {
	EmbedRate  float64
	EmbedBurst int
	JobTimeout time.Duration
}

// Indexer maps time blocks to embedded chunks.
type Indexer struct {
	embedder embedder.Embedder
	store    vectordb.Store
	pool     *Pool
	limiter  *rate.Limiter
	timeout  time.Duration
}

func New(emb embedder.Embedder, store vectordb.Store, pool *Pool, opts Options) (*Indexer, error) {
	if emb == nil {
		return nil, errors.New("indexer: embedder is required")
	}
	if store == nil {
		return nil, errors.New("indexer: chunk store is required")
	}
	limit := rate.Inf
	if opts.EmbedRate > 0 {
		limit = rate.Limit(opts.EmbedRate)
	}
	burst := opts.EmbedBurst
	if burst <= 0 {
		burst = 1
	}
	return &Indexer{
		embedder: emb,
		store:    store,
		pool:     pool,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  opts.JobTimeout,
	}, nil
}

// ChunksFor builds the chunk rows for a job without embeddings.
func ChunksFor(job Job) []vectordb.Chunk {
	chunks := make([]vectordb.Chunk, 0, len(job.Blocks))
	for _, b := range job.Blocks {
		start := b.StartSec()
		chunks = append(chunks, vectordb.Chunk{
			ID:       ChunkID(job.VideoID, start),
			VideoID:  job.VideoID,
			UserID:   job.UserID,
			StartSec: start,
			EndSec:   b.EndSec(),
			Text:     b.Render(),
		})
	}
	return chunks
}

// Index embeds and upserts every block. A failing chunk is logged and
// skipped. The result is an error only when nothing could be indexed.
func (ix *Indexer) Index(ctx context.Context, job Job) core.Result[Report] {
	if job.VideoID == "" {
		return core.Err[Report](core.KindInvalidInput, "video id is required")
	}
	if job.ID == "" {
		job.ID = ksuid.New().String()
	}
	log := logger.FromContext(ctx).With("job_id", job.ID, "video_id", job.VideoID)
	start := time.Now()
	chunks := ChunksFor(job)
	report := Report{JobID: job.ID, Total: len(chunks)}
	log.Info("Chunk indexing started", "blocks", len(chunks))
	for i := range chunks {
		if err := ix.limiter.Wait(ctx); err != nil {
			report.Failed += len(chunks) - i
			log.Warn("Chunk indexing interrupted", "remaining", len(chunks)-i, "error", err)
			break
		}
		if err := ix.indexChunk(ctx, &chunks[i]); err != nil {
			report.Failed++
			log.Warn("Chunk indexing failed", "chunk_id", chunks[i].ID, "start_sec", chunks[i].StartSec, "error", err)
			continue
		}
		report.Indexed++
	}
	recordJob(ctx, report, time.Since(start))
	log.Info("Chunk indexing finished",
		"indexed", report.Indexed,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if report.Total > 0 && report.Indexed == 0 {
		return core.Err[Report](core.KindIndexing, fmt.Sprintf("none of %d chunks could be indexed", report.Total))
	}
	return core.Ok(report)
}

func (ix *Indexer) indexChunk(ctx context.Context, c *vectordb.Chunk) error {
	vectors, err := ix.embedder.EmbedDocuments(ctx, []string{c.Text})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("embed: expected 1 vector, got %d", len(vectors))
	}
	c.Embedding = vectors[0]
	if err := ix.store.Upsert(ctx, []vectordb.Chunk{*c}); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// Enqueue hands the job to the background pool and returns immediately.
// The caller never observes the outcome beyond submission.
func (ix *Indexer) Enqueue(ctx context.Context, job Job) (string, error) {
	if ix.pool == nil {
		return "", errors.New("indexer: no background pool configured")
	}
	if job.ID == "" {
		job.ID = ksuid.New().String()
	}
	log := logger.FromContext(ctx)
	err := ix.pool.Submit("index:"+job.VideoID, func(poolCtx context.Context) {
		runCtx := logger.ContextWithLogger(poolCtx, log)
		if ix.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, ix.timeout)
			defer cancel()
		}
		if res := ix.Index(runCtx, job); !res.IsOk() {
			log.Warn("Background indexing produced no chunks", "job_id", job.ID, "video_id", job.VideoID, "error", res.Error())
		}
	})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}
