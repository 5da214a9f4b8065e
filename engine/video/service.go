package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tubechat/tubechat/engine/chat"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/engine/knowledge/indexer"
	"github.com/tubechat/tubechat/engine/knowledge/selector"
	"github.com/tubechat/tubechat/engine/transcript"
	"github.com/tubechat/tubechat/engine/transcript/source"
	"github.com/tubechat/tubechat/pkg/logger"
)

// Records is the record store, usually the cache in front of postgres.
type Records interface {
	Get(ctx context.Context, videoID string) (*transcript.Record, error)
	Upsert(ctx context.Context, rec *transcript.Record) error
}

// RequestTracker remembers which users asked for which video.
type RequestTracker interface {
	TrackRequest(ctx context.Context, videoID, userID string) error
}

type ChunkCounter interface {
	Count(ctx context.Context, videoID string) (int, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job indexer.Job) (string, error)
}

type Selector interface {
	Select(ctx context.Context, req selector.Request) selector.Decision
}

type Assistant interface {
	Answer(ctx context.Context, in chat.ContextInput) core.Result[chat.Reply]
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Options struct {
	WindowSize      int
	MaxChars        int
	Summarize       bool
	SummaryAttempts uint64
	MinCompletion   float64
}

type Deps struct {
	Source    source.Source
	Records   Records
	Requests  RequestTracker
	Chunks    ChunkCounter
	Indexer   Enqueuer
	Selector  Selector
	Assistant Assistant
}

// Service composes fetching, normalization, persistence, indexing and chat.
type Service struct {
	deps Deps
	opts Options
	now  func() time.Time
}

func NewService(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("video: caption source is required")
	case deps.Records == nil:
		return nil, errors.New("video: record store is required")
	case deps.Selector == nil:
		return nil, errors.New("video: selector is required")
	case deps.Assistant == nil:
		return nil, errors.New("video: assistant is required")
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = transcript.DefaultWindowSize
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = transcript.DefaultMaxTranscriptChars
	}
	if opts.SummaryAttempts == 0 {
		opts.SummaryAttempts = 1
	}
	if opts.MinCompletion <= 0 {
		opts.MinCompletion = selector.DefaultMinCompletion
	}
	return &Service{deps: deps, opts: opts, now: time.Now}, nil
}

// Process returns the stored record for ref, fetching and normalizing the
// captions when the video has not been seen. Indexing is queued in the background.
func (s *Service) Process(ctx context.Context, ref, userID string) core.Result[*transcript.Record] {
	videoID, err := source.ExtractVideoID(ref)
	if err != nil {
		return core.Wrap[*transcript.Record](core.KindInvalidInput, "invalid video reference", err)
	}
	log := logger.FromContext(ctx).With("video_id", videoID)
	ctx = logger.ContextWithLogger(ctx, log)
	if rec, err := s.deps.Records.Get(ctx, videoID); err == nil {
		s.track(ctx, videoID, userID)
		s.reindexIfIncomplete(ctx, rec, userID)
		return core.Ok(rec)
	} else if core.KindOf(err) != core.KindNotFound {
		log.Warn("Record lookup failed, refetching", "error", err)
	}
	caps, err := s.deps.Source.Fetch(ctx, videoID)
	if err != nil {
		return core.Wrap[*transcript.Record](source.Classify(err), captionMessage(err), err)
	}
	norm := transcript.Normalize(caps.Raw, s.opts.WindowSize)
	if !norm.IsOk() {
		log.Info("Captions contained no transcript text")
		return core.FromError[*transcript.Record](norm.Error())
	}
	n := norm.Value()
	rec := &transcript.Record{
		VideoID:          videoID,
		Title:            caps.Metadata.Title,
		Duration:         caps.Metadata.Duration,
		ThumbnailURL:     caps.Metadata.ThumbnailURL,
		TranscriptPlain:  n.Plain,
		TranscriptTimed:  n.Timed,
		TranscriptBlocks: n.Blocks,
		ProcessedAt:      s.now().UTC(),
	}
	if s.opts.Summarize {
		rec.Summary = s.summarize(ctx, rec)
	}
	if err := s.deps.Records.Upsert(ctx, rec); err != nil {
		return core.Wrap[*transcript.Record](core.KindUnavailable, "could not store transcript", err)
	}
	s.track(ctx, videoID, userID)
	s.enqueue(ctx, rec, userID)
	log.Info("Video processed", "blocks", len(rec.TranscriptBlocks), "chars", len(rec.TranscriptPlain))
	return core.Ok(rec)
}

func captionMessage(err error) string {
	switch {
	case errors.Is(err, source.ErrInvalidVideo):
		return "video is unavailable or the reference is invalid"
	case errors.Is(err, source.ErrNoCaptions):
		return "no captions are available for this video"
	default:
		return "caption source is unavailable"
	}
}

// Get returns a processed record without fetching.
func (s *Service) Get(ctx context.Context, videoID string) core.Result[*transcript.Record] {
	if !source.ValidVideoID(videoID) {
		return core.Err[*transcript.Record](core.KindInvalidInput, "invalid video id")
	}
	rec, err := s.deps.Records.Get(ctx, videoID)
	if err != nil {
		if core.KindOf(err) == core.KindNotFound {
			return core.Err[*transcript.Record](core.KindNotFound, "video has not been processed")
		}
		return core.Wrap[*transcript.Record](core.KindUnavailable, "could not load transcript", err)
	}
	return core.Ok(rec)
}

// FullTranscript returns the bounded full-text rendering of a processed video.
func (s *Service) FullTranscript(ctx context.Context, videoID string) core.Result[string] {
	res := s.Get(ctx, videoID)
	if !res.IsOk() {
		return core.FromError[string](res.Error())
	}
	return core.Ok(res.Value().FullText(s.opts.MaxChars))
}

// Ask answers message about a processed video, choosing between retrieved
// chunks and the full transcript.
func (s *Service) Ask(ctx context.Context, videoID string, history []chat.Turn, message string) core.Result[chat.Reply] {
	if strings.TrimSpace(message) == "" {
		return core.Err[chat.Reply](core.KindInvalidInput, "message is required")
	}
	res := s.Get(ctx, videoID)
	if !res.IsOk() {
		return core.FromError[chat.Reply](res.Error())
	}
	rec := res.Value()
	decision := s.deps.Selector.Select(ctx, selector.Request{
		VideoID:        videoID,
		Question:       message,
		ExpectedBlocks: rec.ExpectedChunks(),
		FullText:       func() string { return rec.FullText(s.opts.MaxChars) },
	})
	return s.deps.Assistant.Answer(ctx, chat.ContextInput{
		Title:    rec.Title,
		URL:      source.WatchURL(videoID),
		Decision: decision,
		History:  history,
		Message:  message,
	})
}

func (s *Service) track(ctx context.Context, videoID, userID string) {
	if s.deps.Requests == nil {
		return
	}
	if err := s.deps.Requests.TrackRequest(ctx, videoID, userID); err != nil {
		logger.FromContext(ctx).Warn("Failed to record video request", "error", err)
	}
}

func (s *Service) enqueue(ctx context.Context, rec *transcript.Record, userID string) {
	if s.deps.Indexer == nil || len(rec.TranscriptBlocks) == 0 {
		return
	}
	jobID, err := s.deps.Indexer.Enqueue(ctx, indexer.Job{
		VideoID: rec.VideoID,
		UserID:  userID,
		Blocks:  rec.TranscriptBlocks,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Chunk indexing not queued", "error", err)
		return
	}
	logger.FromContext(ctx).Debug("Chunk indexing queued", "job_id", jobID)
}

// reindexIfIncomplete re-queues indexing for records whose chunk set is below
// the completion ratio, e.g. after an interrupted background job.
func (s *Service) reindexIfIncomplete(ctx context.Context, rec *transcript.Record, userID string) {
	if s.deps.Chunks == nil {
		return
	}
	expected := rec.ExpectedChunks()
	if expected == 0 {
		return
	}
	count, err := s.deps.Chunks.Count(ctx, rec.VideoID)
	if err != nil {
		logger.FromContext(ctx).Warn("Chunk count failed", "error", err)
		return
	}
	if float64(count)/float64(expected) < s.opts.MinCompletion {
		s.enqueue(ctx, rec, userID)
	}
}

const summarySystemPrompt = "You summarize YouTube video transcripts. Write 3 to 5 sentences in the language of the transcript. Do not invent details."

func (s *Service) summarize(ctx context.Context, rec *transcript.Record) string {
	prompt := fmt.Sprintf("Title: %s\n\nTranscript:\n%s", rec.Title, rec.FullText(s.opts.MaxChars))
	backoff := retry.WithMaxRetries(s.opts.SummaryAttempts-1, retry.NewExponential(time.Second))
	var summary string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := s.deps.Assistant.Complete(ctx, summarySystemPrompt, prompt)
		if err != nil {
			return retry.RetryableError(err)
		}
		summary = out
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Summary generation failed", "error", err)
		return ""
	}
	return summary
}
