package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// Backend is the key-value side of the deployment. With Redis reachable,
// Client is the one connection shared by checkout idempotency keys, token
// revocation, rate limiting and the health check. Without it Client is nil
// and Keys is process-local, so duplicate checkouts are only caught per
// instance.
type Backend struct {
	Client redis.UniversalClient
	Keys   shared.IdempotencyStore
}

// Shared reports whether state is visible to every instance
func (b *Backend) Shared() bool { return b.Client != nil }

// Close releases the store and, with it, the shared connection
func (b *Backend) Close() error { return b.Keys.Close() }

type openOptions struct {
	logger       *zap.Logger
	requireRedis bool
}

// Option configures Open
type Option func(*openOptions)

func WithLogger(l *zap.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithRedisRequired makes an unreachable Redis a startup error instead of a
// fallback to process-local state
func WithRedisRequired(required bool) Option {
	return func(o *openOptions) { o.requireRedis = required }
}

// Open connects to Redis when it is enabled and falls back to the in-memory
// store when it is disabled or, unless required, unreachable.
func Open(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Backend, error) {
	o := openOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("Redis disabled, keeping idempotency keys in memory")
		return &Backend{Keys: NewInMemoryIdempotencyStore()}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if o.requireRedis {
			return nil, fmt.Errorf("redis required but unreachable at %s: %w", cfg.Addr(), err)
		}
		o.logger.Warn("Redis unreachable, falling back to in-memory idempotency keys; duplicate checkouts across instances are not detected",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return &Backend{Keys: NewInMemoryIdempotencyStore()}, nil
	}

	o.logger.Info("Connected to redis", zap.String("addr", cfg.Addr()))
	return &Backend{Client: client, Keys: NewRedisIdempotencyStore(client, "")}, nil
}
