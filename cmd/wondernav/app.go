package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wondernav/internal/config"
	"wondernav/internal/generator"
	"wondernav/internal/handlers"
	"wondernav/internal/llm"
	"wondernav/internal/metrics"
	"wondernav/internal/store"
	"wondernav/internal/tracing"
	"wondernav/pkg/logging"
)

// app holds the process-wide clients. They are built once and shared by every invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	handler *handlers.ChatHandler

	closers []func() error
}

func newApp(ctx context.Context, configFile string, inLambda bool) (*app, error) {
	// ----- Config -----
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	// ----- Logger -----
	logger, err := logging.NewLogger(logging.Options{
		Env:      cfg.Log.Env,
		Level:    cfg.Log.Level,
		OmitTime: inLambda,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logging.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	// ----- Metrics + tracing -----
	metrics.Register()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: "wondernav",
		Version:     version,
		Exporter:    cfg.Tracing.Exporter,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		return shutdownTracing(context.Background())
	})

	logger.Info("loaded config",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("table", cfg.Store.Table),
		zap.String("openai_base_url", cfg.OpenAI.BaseURL),
		zap.String("openai_model", cfg.OpenAI.Model),
		zap.Int("max_tokens", cfg.OpenAI.MaxTokens),
		zap.Bool("cache_failed_generations", cfg.Handler.CacheFailedGenerations),
		zap.String("tracing_exporter", cfg.Tracing.Exporter),
	)

	// ----- Chat store -----
	chats, err := store.New(ctx, store.Config{
		Backend:          cfg.Store.Backend,
		Table:            cfg.Store.Table,
		KeyAttribute:     cfg.Store.KeyAttribute,
		ValueAttribute:   cfg.Store.ValueAttribute,
		DynamoDBEndpoint: cfg.Store.DynamoDBEndpoint,
		RedisAddr:        cfg.Store.RedisAddr,
		RedisPrefix:      cfg.Store.RedisPrefix,
		SQLitePath:       cfg.Store.SQLitePath,
	})
	if err != nil {
		logger.Error("chat store setup failed", zap.Error(err))
		a.Close()
		return nil, err
	}
	loggedChats := store.NewLoggingStore(chats, cfg.Store.Backend)
	a.closers = append(a.closers, loggedChats.Close)

	// ----- LLM client -----
	llmClient, err := llm.NewClient(llm.Config{
		BaseURL:         cfg.OpenAI.BaseURL,
		APIKey:          cfg.OpenAI.APIKey,
		UpstreamTimeout: cfg.OpenAI.Timeout,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	// ----- Handler -----
	a.handler = handlers.NewChatHandler(
		loggedChats,
		generator.New(llmClient, generator.Config{
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
		}),
		handlers.Options{CacheFailedGenerations: cfg.Handler.CacheFailedGenerations},
	)

	return a, nil
}

// Close releases clients in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
