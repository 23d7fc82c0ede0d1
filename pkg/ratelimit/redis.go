package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig for the distributed limiter. Defaults are loaded via envdecode.
type RedisConfig struct {
	// Addr like "localhost:6379". Empty disables the Redis backend.
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB,default=0"`
	KeyPrefix string `env:"RATELIMIT_KEY_PREFIX,default=tabchat:cooldown:"`
}

// Redis shares cooldown state between processes. Each pair is a key that
// lives for exactly one window, so SET NX PX is the whole check-and-set.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClient dials and pings Redis with a short timeout.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = "tabchat:cooldown:"
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (r *Redis) key(category, key string) string {
	return r.keyPrefix + category + ":" + key
}

func (r *Redis) Check(ctx context.Context, category, key string, window time.Duration) (bool, error) {
	// PX has millisecond resolution; anything shorter would never expire.
	if window < time.Millisecond {
		window = time.Millisecond
	}

	set, err := r.client.SetNX(ctx, r.key(category, key), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis check: %w", err)
	}
	return !set, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
