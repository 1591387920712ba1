package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "cache:"

// RedisStore is the production-recommended backend for multi-instance
// deployments: all instances observe the same entries, giving the
// "eventually consistent via shared store" coherence the service promises.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRetention sets a physical Redis TTL on entries. Logical expiry is
// still enforced by the orchestrator at read time; retention only caps
// storage growth. Zero keeps entries forever.
func WithRetention(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.retention = d }
}

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// envelope is the stored JSON shape. Expiry travels with the value because
// the store contract returns entries past their expiry.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("redis get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get %q: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return Entry{Key: key, Value: env.Value, ExpiresAt: env.ExpiresAt}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	raw, err := json.Marshal(envelope{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}
