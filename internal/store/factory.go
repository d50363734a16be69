package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by New.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	Backend string

	// dynamodb
	Table            string
	KeyAttribute     string
	ValueAttribute   string
	DynamoDBEndpoint string

	// redis
	RedisAddr   string
	RedisPrefix string

	// sqlite
	SQLitePath string
}

// New builds the configured backend. Clients are created here once and shared
// by every invocation; callers should Close the result if it implements io.Closer.
func New(ctx context.Context, cfg Config) (ChatStore, error) {
	switch cfg.Backend {
	case BackendDynamoDB, "":
		client, err := NewDynamoClient(ctx, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		return NewDynamoStore(client, DynamoConfig{
			Table:          cfg.Table,
			KeyAttribute:   cfg.KeyAttribute,
			ValueAttribute: cfg.ValueAttribute,
		}), nil

	case BackendRedis:
		s := NewRedisStore(redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		}), RedisConfig{Prefix: cfg.RedisPrefix})

		// Fail fast if Redis is misconfigured
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return s, nil

	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)

	case BackendMemory:
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
