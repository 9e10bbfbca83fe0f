package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"useless-progression/gamification"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClaimLock serialises daily claims per user across service instances.
// Acquire returns gamification.ErrClaimInFlight when another claim holds it.
type ClaimLock interface {
	Acquire(ctx context.Context, userID string) (release func(context.Context) error, err error)
}

// NoopClaimLock is used when no redis is configured. The wallet row lock
// still keeps concurrent claims from double-crediting.
type NoopClaimLock struct{}

func (NoopClaimLock) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// releaseScript deletes the key only if this holder still owns it, so a lock
// that expired and was re-acquired by another claim is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

type RedisClaimLock struct {
	redis redis.Cmdable
	ttl   time.Duration
}

func NewRedisClaimLock(client redis.Cmdable, ttl time.Duration) *RedisClaimLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisClaimLock{redis: client, ttl: ttl}
}

func claimLockKey(userID string) string {
	return "useless:claim-lock:" + userID
}

func (l *RedisClaimLock) Acquire(ctx context.Context, userID string) (func(context.Context) error, error) {
	key := claimLockKey(userID)
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim lock: %w", err)
	}
	if !ok {
		return nil, gamification.ErrClaimInFlight
	}

	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.redis, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("claim lock release: %w", err)
		}
		return nil
	}, nil
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
