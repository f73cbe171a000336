package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists Sessions as JSON blobs under a Redis key with a
// native TTL, adapted from Mindburn-Labs-helm/core/pkg/kernel's
// RedisLimiterStore: same client construction and same reliance on
// Redis's own EXPIRE for self-cleaning rather than an application-level
// sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Pass a prefix to namespace
// keys when the client is shared with other subsystems.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "inkmark:stream:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Save(ctx context.Context, id string, s *Session, ttl time.Duration) error {
	data, err := marshalSnapshot(s)
	if err != nil {
		return fmt.Errorf("stream: marshal session snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("stream: redis save: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("stream: redis load: %w", err)
	}
	session, err := unmarshalSnapshot(data)
	if err != nil {
		return nil, false, fmt.Errorf("stream: unmarshal session snapshot: %w", err)
	}
	return session, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("stream: redis delete: %w", err)
	}
	return nil
}
