package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"wondernav/internal/generator"
	"wondernav/internal/metrics"
	"wondernav/internal/store"
	"wondernav/pkg/logging"
)

// ChatHandler answers itinerary queries from the chat store, generating and
// persisting an answer on a miss. It holds no per-request state.
type ChatHandler struct {
	Store     store.ChatStore
	Generator generator.Generator

	// CacheFailedGenerations also persists the fallback text when generation
	// fails.
	CacheFailedGenerations bool

	tracer trace.Tracer
}

type Options struct {
	CacheFailedGenerations bool
}

func NewChatHandler(s store.ChatStore, g generator.Generator, opts Options) *ChatHandler {
	return &ChatHandler{
		Store:                  s,
		Generator:              g,
		CacheFailedGenerations: opts.CacheFailedGenerations,
		tracer:                 otel.Tracer("wondernav/handlers"),
	}
}

// Handle runs one invocation: lookup, then on a miss generate and write back.
//
// A lookup failure becomes a 500 response. A generation failure degrades to
// generator.FallbackText with status 200. A write-back failure is returned as
// an error and no response is produced.
func (h *ChatHandler) Handle(ctx context.Context, req Request) (Response, error) {
	ctx, span := h.tracer.Start(ctx, "chat.handle")
	defer span.End()

	logger := logging.L(ctx)
	start := time.Now()

	// ---- lookup ----
	lookupStart := time.Now()
	cached, found, err := h.Store.Lookup(ctx, req.Body)
	lookupLatency := time.Since(lookupStart)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store lookup failed")
		span.SetAttributes(attribute.String("chat.decision", "error"))

		logger.Error("cache_decision",
			zap.String("decision", "error"),
			zap.Duration("lookup_latency", lookupLatency),
			zap.Error(err),
		)
		return Response{
			StatusCode: http.StatusInternalServerError,
			Body:       fmt.Sprintf("Error querying store: %v", err),
		}, nil
	}

	if found {
		span.SetAttributes(attribute.String("chat.decision", "hit"))
		logger.Info("cache_decision",
			zap.String("decision", "hit"),
			zap.Bool("cache_hit", true),
			zap.Duration("lookup_latency", lookupLatency),
			zap.Duration("total_latency", time.Since(start)),
		)
		return Response{StatusCode: http.StatusOK, Body: cached}, nil
	}

	// ---- miss: generate ----
	span.SetAttributes(attribute.String("chat.decision", "miss"))

	genStart := time.Now()
	generated, genErr := h.Generator.Generate(ctx, req.Body)
	genLatency := time.Since(genStart)

	outcome := generator.Describe(genErr)
	metrics.GenerationsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("chat.generation", outcome))

	if genErr != nil {
		logger.Error("generation_failed",
			zap.String("outcome", outcome),
			zap.Duration("llm_latency", genLatency),
			zap.Error(genErr),
		)
	}

	text := generator.ResponseText(generated, genErr)

	// ---- write back ----
	if genErr == nil || h.CacheFailedGenerations {
		if err := h.Store.Put(ctx, req.Body, text); err != nil {
			metrics.WriteBacksTotal.WithLabelValues("failed").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "write back failed")
			return Response{}, fmt.Errorf("write back chat: %w", err)
		}
		metrics.WriteBacksTotal.WithLabelValues("stored").Inc()
	} else {
		metrics.WriteBacksTotal.WithLabelValues("skipped").Inc()
	}

	logger.Info("cache_decision",
		zap.String("decision", "miss"),
		zap.Bool("cache_hit", false),
		zap.String("generation", outcome),
		zap.Duration("lookup_latency", lookupLatency),
		zap.Duration("llm_latency", genLatency),
		zap.Duration("total_latency", time.Since(start)),
	)

	return Response{StatusCode: http.StatusOK, Body: text}, nil
}

// ChatCompletion handles POST /v1/chat. The request and response bodies are
// the invocation envelopes; the envelope status code is used as the HTTP status.
func (h *ChatHandler) ChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid request", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	resp, err := h.Handle(ctx, req)
	if err != nil {
		logger.Error("invocation failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_server_error"}`))
		return
	}

	h.writeJSON(w, resp.StatusCode, resp)
}

// writeJSON is a small helper to send JSON responses consistently.
func (h *ChatHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
