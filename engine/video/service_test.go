package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tubechat/tubechat/engine/chat"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/engine/knowledge/indexer"
	"github.com/tubechat/tubechat/engine/knowledge/selector"
	"github.com/tubechat/tubechat/engine/transcript"
	"github.com/tubechat/tubechat/engine/transcript/source"
)

const (
	videoID   = "dQw4w9WgXcQ"
	sampleVTT = "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nhello world\n\n" +
		"00:00:03.000 --> 00:00:05.000\nhello world\n\n00:00:05.000 --> 00:00:07.000\ngoodbye\n"
)

var errNotFound = core.NewError(core.KindNotFound, "transcript record not found", nil)

type fakeSource struct {
	caps  *source.Captions
	err   error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, id string) (*source.Captions, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c := *f.caps
	c.VideoID = id
	return &c, nil
}

type fakeRecords struct {
	mu      sync.Mutex
	records map[string]*transcript.Record
	getErr  error
	putErr  error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]*transcript.Record{}}
}

func (f *fakeRecords) Get(_ context.Context, id string) (*transcript.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, errNotFound
	}
	return rec, nil
}

func (f *fakeRecords) Upsert(_ context.Context, rec *transcript.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.records[rec.VideoID] = rec
	return nil
}

type fakeEnqueuer struct {
	jobs []indexer.Job
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, job indexer.Job) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return "job-1", nil
}

type fakeCounter struct{ count int }

func (f *fakeCounter) Count(context.Context, string) (int, error) { return f.count, nil }

type fakeSelector struct {
	last     selector.Request
	decision selector.Decision
}

func (f *fakeSelector) Select(_ context.Context, req selector.Request) selector.Decision {
	f.last = req
	d := f.decision
	if d.Mode == selector.ModeFull {
		d.Text = req.FullText()
	}
	return d
}

type fakeAssistant struct {
	summary    string
	summaryErr error
	completes  int
	lastInput  chat.ContextInput
}

func (f *fakeAssistant) Answer(_ context.Context, in chat.ContextInput) core.Result[chat.Reply] {
	f.lastInput = in
	return core.Ok(chat.Reply{Text: "answer", Mode: string(in.Decision.Mode)})
}

func (f *fakeAssistant) Complete(context.Context, string, string) (string, error) {
	f.completes++
	return f.summary, f.summaryErr
}

type fixture struct {
	svc       *Service
	source    *fakeSource
	records   *fakeRecords
	enqueuer  *fakeEnqueuer
	counter   *fakeCounter
	selector  *fakeSelector
	assistant *fakeAssistant
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		source: &fakeSource{caps: &source.Captions{
			Raw:      sampleVTT,
			Metadata: source.Metadata{Title: "Demo", Duration: 7},
		}},
		records:   newFakeRecords(),
		enqueuer:  &fakeEnqueuer{},
		counter:   &fakeCounter{},
		selector:  &fakeSelector{decision: selector.Decision{Mode: selector.ModeFull}},
		assistant: &fakeAssistant{summary: "A short greeting."},
	}
	svc, err := NewService(Deps{
		Source:    f.source,
		Records:   f.records,
		Chunks:    f.counter,
		Indexer:   f.enqueuer,
		Selector:  f.selector,
		Assistant: f.assistant,
	}, opts)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func TestService_Process(t *testing.T) {
	ctx := context.Background()
	t.Run("Should normalize, store and queue indexing", func(t *testing.T) {
		f := newFixture(t, Options{Summarize: true})
		res := f.svc.Process(ctx, "https://youtu.be/"+videoID, "user-1")
		require.True(t, res.IsOk(), res.Error())
		rec := res.Value()
		assert.Equal(t, "hello world goodbye", rec.TranscriptPlain)
		assert.Equal(t, "00:00:01.000  hello world\n00:00:05.000  goodbye", rec.TranscriptTimed)
		assert.Equal(t, []transcript.TimeBlock{{Start: "00:00:00", End: "00:00:07", Text: "hello world goodbye"}}, rec.TranscriptBlocks)
		assert.Equal(t, "Demo", rec.Title)
		assert.Equal(t, "A short greeting.", rec.Summary)
		assert.Contains(t, f.records.records, videoID)
		require.Len(t, f.enqueuer.jobs, 1)
		assert.Equal(t, "user-1", f.enqueuer.jobs[0].UserID)
		assert.Len(t, f.enqueuer.jobs[0].Blocks, 1)
	})
	t.Run("Should return stored records without fetching", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.counter.count = 1
		require.True(t, f.svc.Process(ctx, videoID, "").IsOk())
		require.True(t, f.svc.Process(ctx, videoID, "").IsOk())
		assert.Equal(t, 1, f.source.calls)
		assert.Len(t, f.enqueuer.jobs, 1)
	})
	t.Run("Should requeue indexing when the chunk set is incomplete", func(t *testing.T) {
		f := newFixture(t, Options{})
		require.True(t, f.svc.Process(ctx, videoID, "").IsOk())
		require.True(t, f.svc.Process(ctx, videoID, "").IsOk())
		assert.Len(t, f.enqueuer.jobs, 2)
	})
	t.Run("Should keep an empty summary when generation fails", func(t *testing.T) {
		f := newFixture(t, Options{Summarize: true, SummaryAttempts: 1})
		f.assistant.summaryErr = errors.New("quota")
		res := f.svc.Process(ctx, videoID, "")
		require.True(t, res.IsOk())
		assert.Empty(t, res.Value().Summary)
		assert.Equal(t, 1, f.assistant.completes)
	})
	t.Run("Should succeed when indexing cannot be queued", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.enqueuer.err = indexer.ErrQueueFull
		assert.True(t, f.svc.Process(ctx, videoID, "").IsOk())
	})
	t.Run("Should map failures to kinds", func(t *testing.T) {
		cases := []struct {
			name  string
			ref   string
			setup func(*fixture)
			kind  core.Kind
		}{
			{"invalid reference", "not a video", nil, core.KindInvalidInput},
			{"no captions", videoID, func(f *fixture) { f.source.err = source.ErrNoCaptions }, core.KindNoTranscript},
			{"unavailable video", videoID, func(f *fixture) { f.source.err = source.ErrInvalidVideo }, core.KindInvalidInput},
			{"source down", videoID, func(f *fixture) { f.source.err = errors.New("exit 1") }, core.KindUnavailable},
			{"empty captions", videoID, func(f *fixture) { f.source.caps.Raw = "WEBVTT\nKind: captions\n" }, core.KindNoTranscript},
			{"store down", videoID, func(f *fixture) { f.records.putErr = errors.New("conn") }, core.KindUnavailable},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				f := newFixture(t, Options{})
				if tc.setup != nil {
					tc.setup(f)
				}
				res := f.svc.Process(ctx, tc.ref, "")
				assert.Equal(t, tc.kind, res.Kind())
				assert.Empty(t, f.enqueuer.jobs)
			})
		}
	})
}

func TestService_Ask(t *testing.T) {
	ctx := context.Background()
	t.Run("Should pass the expected block count and full text to the selector", func(t *testing.T) {
		f := newFixture(t, Options{})
		require.True(t, f.svc.Process(ctx, videoID, "").IsOk())
		history := []chat.Turn{{Role: chat.RoleUser, Content: "hi"}}
		res := f.svc.Ask(ctx, videoID, history, "what is said at @0:05?")
		require.True(t, res.IsOk())
		assert.Equal(t, "answer", res.Value().Text)
		assert.Equal(t, 1, f.selector.last.ExpectedBlocks)
		assert.Equal(t, "00:00:00 - 00:00:07 : hello world goodbye", f.assistant.lastInput.Decision.Text)
		assert.Equal(t, "https://www.youtube.com/watch?v="+videoID, f.assistant.lastInput.URL)
		assert.Equal(t, history, f.assistant.lastInput.History)
	})
	t.Run("Should report unknown videos", func(t *testing.T) {
		f := newFixture(t, Options{})
		assert.Equal(t, core.KindNotFound, f.svc.Ask(ctx, videoID, nil, "q").Kind())
	})
	t.Run("Should reject empty messages", func(t *testing.T) {
		f := newFixture(t, Options{})
		assert.Equal(t, core.KindInvalidInput, f.svc.Ask(ctx, videoID, nil, " ").Kind())
	})
}

func TestService_FullTranscript(t *testing.T) {
	t.Run("Should truncate to the configured budget", func(t *testing.T) {
		f := newFixture(t, Options{MaxChars: 10})
		require.True(t, f.svc.Process(context.Background(), videoID, "").IsOk())
		res := f.svc.FullTranscript(context.Background(), videoID)
		require.True(t, res.IsOk())
		assert.Equal(t, "00:00:00 -"+transcript.TruncationMarker, res.Value())
	})
	t.Run("Should map store failures to unavailable", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.records.getErr = errors.New("conn")
		assert.Equal(t, core.KindUnavailable, f.svc.FullTranscript(context.Background(), videoID).Kind())
	})
}

func TestNewService(t *testing.T) {
	t.Run("Should require collaborators", func(t *testing.T) {
		_, err := NewService(Deps{}, Options{})
		assert.Error(t, err)
	})
}
