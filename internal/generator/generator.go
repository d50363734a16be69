// Package generator turns a travel query into an itinerary using a text-completion model.
package generator

//go:generate mockgen -source=generator.go -destination=../mocks/generator/mock_generator.go -package=mock_generator Generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wondernav/internal/llm"
	"wondernav/pkg/logging"
)

// Instruction is prepended verbatim to every query. There is no separator
// between it and the user text.
const Instruction = "You are an experienced travel agent that will provide an in-depth itinerary based on relevant online articles. You will provide the itinerary based on the location and duration entered by the user. Include at least 3 activities a day. Do not include any other suggestions or comments before or after the itinerary."

const (
	DefaultModel     = "gpt-3.5-turbo-instruct"
	DefaultMaxTokens = 900
)

// ErrNoCompletions is returned when the service answers with an empty choice list.
var ErrNoCompletions = errors.New("generator: service returned no completions")

// GenerationError wraps a request-construction or service-call failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generator: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces an answer for a prompt body.
type Generator interface {
	Generate(ctx context.Context, body string) (string, error)
}

type Config struct {
	Model     string
	MaxTokens int
}

// Itinerary is the Generator backed by an llm.Client.
type Itinerary struct {
	client    llm.Client
	model     string
	maxTokens int
}

func New(client llm.Client, cfg Config) *Itinerary {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Itinerary{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// BuildPrompt concatenates the fixed instruction and the caller's body.
func BuildPrompt(body string) string {
	return Instruction + body
}

// Generate returns the text of the first completion.
func (g *Itinerary) Generate(ctx context.Context, body string) (string, error) {
	start := time.Now()

	resp, err := g.client.Completion(ctx, &llm.CompletionRequest{
		Model:     g.model,
		Prompt:    BuildPrompt(body),
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoCompletions
	}

	logging.L(ctx).Debug("itinerary_generated",
		zap.String("model", g.model),
		zap.Int("choices", len(resp.Choices)),
		zap.Duration("latency", time.Since(start)),
	)

	return resp.Choices[0].Text, nil
}

// FallbackText is what callers see when generation fails.
const FallbackText = "Error generating response."

// ResponseText maps a generation result to user-visible text. The cause of a
// failure is never part of the returned text.
func ResponseText(text string, err error) string {
	if err != nil {
		return FallbackText
	}
	return text
}

// Describe returns a short classification of a generation error for logs and metrics.
func Describe(err error) string {
	var upErr *llm.UpstreamError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoCompletions):
		return "no_completions"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &upErr):
		return upstreamClass(upErr.StatusCode)
	default:
		return "failure"
	}
}

// upstreamClass buckets a provider status so metric labels stay bounded.
func upstreamClass(status int) string {
	switch {
	case status >= 400 && status < 500:
		return "upstream_4xx"
	case status >= 500 && status < 600:
		return "upstream_5xx"
	default:
		return "upstream_other"
	}
}
