package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Config describes an OpenAI-compatible embedding model.
type Config struct {
	Model         string
	APIKey        string
	BaseURL       string
	Dimension     int
	BatchSize     int
	StripNewLines bool
	CacheSize     int
}

var (
	errMissingModel     = errors.New("embedder model is required")
	errInvalidDimension = errors.New("embedder dimension must be greater than zero")
	errInvalidBatchSize = errors.New("embedder batch size must be greater than zero")
)

// Adapter wraps a langchaingo embedder, checks dimensions and caches query vectors.
type Adapter struct {
	model     string
	dimension int
	impl      embeddings.Embedder
	cache     *lru.Cache[string, []float32]
}

// NewOpenAI builds an adapter backed by the OpenAI embeddings API.
func NewOpenAI(cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: create openai client: %w", cfg.Model, err)
	}
	impl, err := embeddings.NewEmbedder(
		client,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(cfg.StripNewLines),
	)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: %w", cfg.Model, err)
	}
	return Wrap(cfg, impl)
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if impl == nil {
		return nil, fmt.Errorf("embedder %q: implementation is required", cfg.Model)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	a := &Adapter{model: cfg.Model, dimension: cfg.Dimension, impl: impl}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: init cache: %w", cfg.Model, err)
		}
		a.cache = cache
	}
	return a, nil
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Model) == "" {
		return errMissingModel
	}
	if cfg.Dimension <= 0 {
		return errInvalidDimension
	}
	if cfg.BatchSize <= 0 {
		return errInvalidBatchSize
	}
	return nil
}

// Dimension returns the configured vector dimension.
func (a *Adapter) Dimension() int {
	return a.dimension
}

// EmbedQuery embeds a single text, serving repeats from the cache.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if a.cache != nil {
		if vector, ok := a.cache.Get(key); ok {
			recordCache(ctx, true)
			return cloneVector(vector), nil
		}
		recordCache(ctx, false)
	}
	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, a.withContext(err)
	}
	if err := a.checkDimension(vector); err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Add(key, cloneVector(vector))
	}
	return vector, nil
}

// EmbedDocuments embeds texts in order.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := a.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, a.withContext(err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder %q: expected %d vectors, got %d", a.model, len(texts), len(vectors))
	}
	for _, v := range vectors {
		if err := a.checkDimension(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (a *Adapter) checkDimension(vector []float32) error {
	if len(vector) != a.dimension {
		return fmt.Errorf("embedder %q: dimension mismatch (got %d want %d)", a.model, len(vector), a.dimension)
	}
	return nil
}

func (a *Adapter) withContext(err error) error {
	return fmt.Errorf("embedder %q: %w", a.model, err)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	return append([]float32(nil), v...)
}
