package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a [Storage] that keeps the credential under one Redis key. When
// Save receives an expiry hint the key expires with the credential, so a
// stale credential disappears even if the client never runs again.
type Redis struct {
	redis redis.UniversalClient
	key   string
}

// NewRedis returns a [Redis] storage. The credential lives at prefix:key;
// an empty key falls back to [DefaultKey].
func NewRedis(client redis.UniversalClient, prefix, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if prefix != "" {
		key = prefix + ":" + key
	}
	return &Redis{redis: client, key: key}
}

// Key returns the Redis key the credential is stored under.
func (r *Redis) Key() string {
	return r.key
}

// Load returns the stored credential or [ErrNotFound].
func (r *Redis) Load(ctx context.Context) (string, error) {
	credential, err := r.redis.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if credential == "" {
		return "", ErrNotFound
	}
	return credential, nil
}

// Save replaces the stored credential. A non-zero expiresAt in the past is
// stored and expired in the same transaction.
func (r *Redis) Save(ctx context.Context, credential string, expiresAt time.Time) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key, credential, 0)
		if !expiresAt.IsZero() {
			pipe.ExpireAt(ctx, r.key, expiresAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes the credential key.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (r *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
