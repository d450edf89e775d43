package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "marketfee:"

// RedisOptions configures the Redis-backed cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// MaxConnectWait bounds the retry loop on startup; zero means one minute.
	MaxConnectWait time.Duration
}

// Redis is a Cache backed by go-redis.
type Redis struct {
	client *redis.Client
}

// ConnectRedis dials Redis and pings it with exponential backoff until it answers
// or MaxConnectWait elapses.
func ConnectRedis(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*Redis, error) {
	const operation = "cache.ConnectRedis"
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = opts.MaxConnectWait
	if policy.MaxElapsedTime <= 0 {
		policy.MaxElapsedTime = time.Minute
	}

	err := backoff.RetryNotify(
		func() error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			logger.Warn("redis connection failed, retrying",
				zap.String("addr", opts.Addr),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: connect to %s: %w", operation, opts.Addr, err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
