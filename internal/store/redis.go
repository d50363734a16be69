package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements ChatStore using Redis strings without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
	}
}

// key builds the final Redis key with prefix.
func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, &LookupError{Backend: "redis", Err: fmt.Errorf("context error: %w", err)}
	}

	res, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &LookupError{Backend: "redis", Err: fmt.Errorf("redis get failed: %w", err)}
	}

	return res, true, nil
}

// Put stores the record with no TTL; the chats table never evicts.
func (s *RedisStore) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Backend: "redis", Err: fmt.Errorf("context error: %w", err)}
	}

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return &WriteError{Backend: "redis", Err: fmt.Errorf("redis set failed: %w", err)}
	}

	return nil
}

// Ping checks if Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
