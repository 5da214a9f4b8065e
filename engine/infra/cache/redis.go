package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tubechat/tubechat/pkg/config"
	"github.com/tubechat/tubechat/pkg/logger"
)

const fallbackRedisPingTimeout = 10 * time.Second

// Redis wraps the shared client. In embedded mode it also owns an in-process
// miniredis server for single-binary development setups.
type Redis struct {
	client   redis.UniversalClient
	embedded *miniredis.Miniredis
	once     sync.Once
	ctx      context.Context
}

func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	log := logger.FromContext(ctx).With("component", "infra_redis")
	ctx = logger.ContextWithLogger(ctx, log)
	r := &Redis{ctx: ctx}
	addr := cfg.Addr
	if cfg.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("starting embedded redis: %w", err)
		}
		r.embedded = mr
		addr = mr.Addr()
	}
	r.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password.Value(),
		DB:       cfg.DB,
	})
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = fallbackRedisPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	log.Info("Redis connection established", "cache_driver", "redis", "addr", addr, "db", cfg.DB, "embedded", cfg.Embedded)
	return r, nil
}

// NewFromClient wraps an existing client, mainly for tests.
func NewFromClient(ctx context.Context, client redis.UniversalClient) *Redis {
	return &Redis{client: client, ctx: ctx}
}

func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: health check failed: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		if r.client != nil {
			err = r.client.Close()
		}
		if r.embedded != nil {
			r.embedded.Close()
		}
		if err != nil {
			logger.FromContext(r.ctx).Error("Redis connection close failed", "error", err)
			return
		}
		logger.FromContext(r.ctx).Debug("Redis connection closed")
	})
	return err
}
