package selector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tubechat/tubechat/engine/knowledge/embedder"
	"github.com/tubechat/tubechat/engine/knowledge/vectordb"
	"github.com/tubechat/tubechat/pkg/logger"
)

type Mode string

const (
	ModeChunks Mode = "chunks"
	ModeFull   Mode = "full"
)

// Reasons recorded on each decision.
const (
	ReasonNoExpectedBlocks = "no_expected_blocks"
	ReasonNoChunks         = "no_chunks"
	ReasonIncomplete       = "index_incomplete"
	ReasonSearchFailed     = "search_failed"
	ReasonNoMatches        = "no_matches"
	ReasonLowSimilarity    = "low_similarity"
	ReasonRelevant         = "relevant"
)

const (
	DefaultTopK          = 3
	DefaultMinCompletion = 0.95
	DefaultMinSimilarity = 0.37
)

type Config struct {
	TopK          int
	MinCompletion float64
	MinSimilarity float64
}

func DefaultConfig() Config {
	return Config{TopK: DefaultTopK, MinCompletion: DefaultMinCompletion, MinSimilarity: DefaultMinSimilarity}
}

// Request describes one question about one video. FullText is only called
// when the decision falls back to the whole transcript.
type Request struct {
	VideoID        string
	Question       string
	ExpectedBlocks int
	FullText       func() string
}

// Decision is the material chosen to answer a question.
type Decision struct {
	Mode   Mode             `json:"mode"`
	Chunks []vectordb.Chunk `json:"chunks,omitempty"`
	Text   string           `json:"-"`
	Reason string           `json:"reason"`
	Top    float64          `json:"topScore,omitempty"`
}

type Selector struct {
	embedder embedder.Embedder
	store    vectordb.Store
	cfg      Config
}

func New(emb embedder.Embedder, store vectordb.Store, cfg Config) (*Selector, error) {
	if emb == nil {
		return nil, errors.New("selector: embedder is required")
	}
	if store == nil {
		return nil, errors.New("selector: chunk store is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Selector{embedder: emb, store: store, cfg: cfg}, nil
}

// Select never fails: any problem along the way yields the full transcript.
func (s *Selector) Select(ctx context.Context, req Request) Decision {
	log := logger.FromContext(ctx).With("video_id", req.VideoID)
	d, err := s.decide(ctx, req)
	if err != nil {
		log.Warn("Relevance search failed, using full transcript", "error", err)
	}
	if d.Mode == ModeFull {
		d.Chunks = nil
		if req.FullText != nil {
			d.Text = req.FullText()
		}
	}
	recordDecision(ctx, d)
	log.Debug("Context selected", "mode", d.Mode, "reason", d.Reason, "chunks", len(d.Chunks), "top_score", d.Top)
	return d
}

func (s *Selector) decide(ctx context.Context, req Request) (Decision, error) {
	if req.ExpectedBlocks <= 0 {
		return full(ReasonNoExpectedBlocks), nil
	}
	count, err := s.store.Count(ctx, req.VideoID)
	if err != nil {
		return full(ReasonSearchFailed), fmt.Errorf("count chunks: %w", err)
	}
	if count == 0 {
		return full(ReasonNoChunks), nil
	}
	if float64(count)/float64(req.ExpectedBlocks) < s.cfg.MinCompletion {
		return full(ReasonIncomplete), nil
	}
	query, err := s.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		return full(ReasonSearchFailed), fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.store.Search(ctx, req.VideoID, query, vectordb.SearchOptions{TopK: s.cfg.TopK})
	if err != nil {
		return full(ReasonSearchFailed), fmt.Errorf("search chunks: %w", err)
	}
	if len(matches) == 0 {
		return full(ReasonNoMatches), nil
	}
	top := matches[0].Score
	for _, m := range matches[1:] {
		top = max(top, m.Score)
	}
	if top <= s.cfg.MinSimilarity {
		d := full(ReasonLowSimilarity)
		d.Top = top
		return d, nil
	}
	chunks := make([]vectordb.Chunk, len(matches))
	for i := range matches {
		chunks[i] = matches[i].Chunk
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].StartSec < chunks[j].StartSec })
	return Decision{Mode: ModeChunks, Chunks: chunks, Text: RenderChunks(chunks), Reason: ReasonRelevant, Top: top}, nil
}

func full(reason string) Decision {
	return Decision{Mode: ModeFull, Reason: reason}
}

// RenderChunks joins chunk texts in the given order, one per line.
func RenderChunks(chunks []vectordb.Chunk) string {
	lines := make([]string, len(chunks))
	for i := range chunks {
		lines[i] = chunks[i].Text
	}
	return strings.Join(lines, "\n")
}
