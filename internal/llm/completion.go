package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxErrorBody caps how much of a non-2xx body is read into UpstreamError.
const maxErrorBody = 4 * 1024

// UpstreamError is a non-2xx answer from the provider.
type UpstreamError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llmclient: upstream %d: %s (%s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("llmclient: upstream %d: %s", e.StatusCode, e.Message)
}

// Completion makes exactly one POST to /v1/completions. Failures are returned
// as they happen; there is no second attempt.
func (c *client) Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("llmclient: request is nil")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("llmclient: invalid request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(providerCompletionRequest{
		Model:     req.Model,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient: build HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("completion request failed",
			zap.String("model", req.Model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("llmclient: call completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.upstreamError(resp)
	}

	var pResp providerCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&pResp); err != nil {
		return nil, fmt.Errorf("llmclient: decode upstream response: %w", err)
	}

	out := &CompletionResponse{
		ID:      pResp.ID,
		Created: time.Unix(pResp.Created, 0),
		Model:   pResp.Model,
		Choices: make([]CompletionChoice, 0, len(pResp.Choices)),
		Usage:   &Usage{},
	}
	for _, ch := range pResp.Choices {
		out.Choices = append(out.Choices, CompletionChoice{
			Index:        ch.Index,
			Text:         ch.Text,
			FinishReason: ch.FinishReason,
		})
	}
	if pResp.Usage != nil {
		*out.Usage = Usage{
			PromptTokens:     pResp.Usage.PromptTokens,
			CompletionTokens: pResp.Usage.CompletionTokens,
			TotalTokens:      pResp.Usage.TotalTokens,
		}
	}

	c.logger.Info("completion received",
		zap.String("model", out.Model),
		zap.Int("choices", len(out.Choices)),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// upstreamError turns a non-2xx response into an *UpstreamError, preferring
// the provider's structured error body.
func (c *client) upstreamError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	upErr := &UpstreamError{StatusCode: resp.StatusCode}
	var perr providerErrorResponse
	if err := json.Unmarshal(raw, &perr); err == nil && perr.Error.Message != "" {
		upErr.Type = perr.Error.Type
		upErr.Message = perr.Error.Message
	} else {
		upErr.Message = truncate(string(raw), 200)
	}

	c.logger.Error("completion rejected upstream",
		zap.Int("status", upErr.StatusCode),
		zap.String("error_type", upErr.Type),
		zap.String("error_message", upErr.Message),
	)
	return upErr
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
