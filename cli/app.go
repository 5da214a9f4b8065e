package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tubechat/tubechat/engine/chat"
	"github.com/tubechat/tubechat/engine/infra/cache"
	"github.com/tubechat/tubechat/engine/infra/monitoring"
	"github.com/tubechat/tubechat/engine/infra/postgres"
	"github.com/tubechat/tubechat/engine/infra/server"
	"github.com/tubechat/tubechat/engine/knowledge/embedder"
	"github.com/tubechat/tubechat/engine/knowledge/indexer"
	"github.com/tubechat/tubechat/engine/knowledge/selector"
	"github.com/tubechat/tubechat/engine/knowledge/vectordb"
	"github.com/tubechat/tubechat/engine/transcript/source"
	"github.com/tubechat/tubechat/engine/video"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/logger"
)

// app holds the wired runtime shared by serve, process, index and ask.
type app struct {
	cfg        *config.Config
	monitoring *monitoring.Service
	db         *postgres.Store
	redis      *cache.Redis
	repo       *postgres.RecordRepo
	records    video.Records
	chunks     vectordb.Store
	pool       *indexer.Pool
	indexer    *indexer.Indexer
	selector   *selector.Selector
	chat       *chat.Service
	videos     *video.Service
	closers    []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()
	a.monitoring = monitoring.NewServiceWithFallback(ctx, &cfg.Monitoring)
	a.monitoring.SetAsGlobal()
	a.closers = append(a.closers, a.monitoring.Shutdown)
	if err := a.openStores(ctx); err != nil {
		return nil, err
	}
	if err := a.buildKnowledge(ctx); err != nil {
		return nil, err
	}
	if err := a.buildVideos(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	pgCfg := postgres.FromAppConfig(&a.cfg.Database)
	if a.cfg.Database.AutoMigrate {
		if err := postgres.ApplyMigrationsWithLock(ctx, pgCfg.DSN()); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}
	db, err := postgres.NewStore(ctx, pgCfg)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	a.repo = postgres.NewRecordRepo(db.Pool())
	a.records = a.repo
	if a.needsRedis() {
		rds, err := cache.NewRedis(ctx, &a.cfg.Redis)
		if err != nil {
			return err
		}
		a.redis = rds
		a.closers = append(a.closers, func(context.Context) error { return rds.Close() })
	}
	if a.cfg.Cache.Enabled {
		var client redis.UniversalClient
		if a.redis != nil {
			client = a.redis.Client()
		}
		cached, err := cache.NewRecords(a.repo, client, cache.RecordOptions{
			TTL:         a.cfg.Cache.TTL,
			KeyPrefix:   a.cfg.Cache.KeyPrefix,
			LocalMaxMiB: a.cfg.Cache.LocalMaxMiB,
		})
		if err != nil {
			return err
		}
		a.records = cached
		a.closers = append(a.closers, func(context.Context) error { cached.Close(); return nil })
	}
	return nil
}

func (a *app) needsRedis() bool {
	return a.cfg.Cache.Enabled || a.cfg.VectorDB.Provider == vectordb.ProviderRedis
}

func (a *app) buildKnowledge(ctx context.Context) error {
	emb, err := embedder.NewOpenAI(&embedder.Config{
		Model:         a.cfg.OpenAI.EmbeddingModel,
		APIKey:        a.cfg.OpenAI.APIKey.Value(),
		BaseURL:       a.cfg.OpenAI.BaseURL,
		Dimension:     a.cfg.Embedder.Dimension,
		BatchSize:     a.cfg.Embedder.BatchSize,
		StripNewLines: a.cfg.Embedder.StripNewLines,
		CacheSize:     a.cfg.Embedder.CacheSize,
	})
	if err != nil {
		return err
	}
	deps := vectordb.Deps{DB: a.db.Pool()}
	if a.redis != nil {
		deps.Redis = a.redis.Client()
	}
	chunks, err := vectordb.New(ctx, &vectordb.Config{
		Provider:    a.cfg.VectorDB.Provider,
		Dimension:   a.cfg.Embedder.Dimension,
		Table:       a.cfg.VectorDB.Table,
		KeyPrefix:   a.cfg.VectorDB.KeyPrefix,
		EnsureIndex: a.cfg.VectorDB.EnsureIndex,
	}, deps)
	if err != nil {
		return err
	}
	a.chunks = chunks
	a.closers = append(a.closers, chunks.Close)
	a.pool = indexer.NewPool(ctx, a.cfg.Indexer.Workers, a.cfg.Indexer.QueueSize)
	a.closers = append(a.closers, a.pool.Shutdown)
	a.indexer, err = indexer.New(emb, chunks, a.pool, indexer.Options{
		EmbedRate:  a.cfg.Indexer.EmbedRate,
		EmbedBurst: a.cfg.Indexer.EmbedBurst,
		JobTimeout: a.cfg.Indexer.JobTimeout,
	})
	if err != nil {
		return err
	}
	a.selector, err = selector.New(emb, chunks, selector.Config{
		TopK:          a.cfg.Retrieval.TopK,
		MinCompletion: a.cfg.Retrieval.MinCompletion,
		MinSimilarity: a.cfg.Retrieval.MinSimilarity,
	})
	return err
}

func (a *app) buildVideos() error {
	opts := []openai.Option{openai.WithModel(a.cfg.OpenAI.ChatModel)}
	if key := a.cfg.OpenAI.APIKey.Value(); key != "" {
		opts = append(opts, openai.WithToken(key))
	}
	if a.cfg.OpenAI.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(a.cfg.OpenAI.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create chat model %q: %w", a.cfg.OpenAI.ChatModel, err)
	}
	a.chat, err = chat.NewService(llm, a.cfg.OpenAI.Temperature)
	if err != nil {
		return err
	}
	src, err := source.New(&a.cfg.Source)
	if err != nil {
		return err
	}
	a.videos, err = video.NewService(video.Deps{
		Source:    src,
		Records:   a.records,
		Requests:  a.repo,
		Chunks:    a.chunks,
		Indexer:   a.indexer,
		Selector:  a.selector,
		Assistant: a.chat,
	}, video.Options{
		WindowSize:      a.cfg.Transcript.WindowSize,
		MaxChars:        a.cfg.Transcript.MaxChars,
		Summarize:       a.cfg.Transcript.Summarize,
		SummaryAttempts: a.cfg.OpenAI.MaxAttempts,
		MinCompletion:   a.cfg.Retrieval.MinCompletion,
	})
	return err
}

func (a *app) healthChecks() map[string]server.HealthChecker {
	checks := map[string]server.HealthChecker{"postgres": a.db}
	if a.redis != nil {
		checks["redis"] = a.redis
	}
	return checks
}

// Close releases resources in reverse order of acquisition. The indexing pool
// drains before the stores it writes to are closed.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.FromContext(ctx).Warn("Shutdown finished with errors", "error", err)
		return err
	}
	return nil
}
