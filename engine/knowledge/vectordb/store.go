package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Deps carries the shared clients a provider may need.
type Deps struct {
	DB    DB
	Redis redis.UniversalClient
}

// New builds the store selected by cfg.Provider.
func New(ctx context.Context, cfg *Config, deps Deps) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vectordb: config is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("vectordb: dimension must be positive, got %d", cfg.Dimension)
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	var (
		store Store
		err   error
	)
	switch provider {
	case ProviderPGVector:
		if deps.DB == nil {
			return nil, errors.New("vectordb: pgvector provider requires a postgres connection")
		}
		store, err = NewPGStore(ctx, deps.DB, cfg)
	case ProviderRedis:
		if deps.Redis == nil {
			return nil, errors.New("vectordb: redis provider requires a redis client")
		}
		store = NewRedisStore(deps.Redis, cfg)
	case ProviderMemory:
		store = NewMemoryStore(cfg.Dimension)
	default:
		return nil, fmt.Errorf("vectordb: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(store, provider), nil
}
