package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wondernav/internal/metrics"
	"wondernav/pkg/logging"
)

// LoggingStore wraps a ChatStore with logging + metrics.
type LoggingStore struct {
	inner   ChatStore
	backend string
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner ChatStore, backend string) *LoggingStore {
	return &LoggingStore{inner: inner, backend: backend}
}

func (s *LoggingStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.inner.Lookup(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if found {
		result = "hit"
	}
	metrics.StoreResultsTotal.WithLabelValues(result).Inc()

	fields := []zap.Field{
		zap.String("store_backend", s.backend),
		zap.String("key", key),
		zap.String("store_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("chat_store_get", append(fields, zap.Error(err))...)
	} else {
		logger.Info("chat_store_get", fields...)
	}

	return value, found, err
}

func (s *LoggingStore) Put(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.inner.Put(ctx, key, value)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	fields := []zap.Field{
		zap.String("store_backend", s.backend),
		zap.String("key", key),
		zap.Int("value_bytes", len(value)),
		zap.Float64("latency_ms", latencyMs),
	}

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("chat_store_set", append(fields, zap.Error(err))...)
	} else {
		logger.Info("chat_store_set", fields...)
	}

	return err
}

// Close closes the wrapped store when it holds resources.
func (s *LoggingStore) Close() error {
	if closer, ok := s.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
