package llm

import (
	"context"
	"errors"
	"time"
)

// CompletionRequest is a legacy text-completion request. Sampling parameters
// are deliberately absent so the provider defaults apply.
type CompletionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

func (r *CompletionRequest) Validate() error {
	if r.Model == "" {
		return errors.New("model is required")
	}
	if r.MaxTokens < 0 {
		return errors.New("max_tokens must not be negative")
	}
	return nil
}

type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse may carry zero choices; callers decide how to treat that.
type CompletionResponse struct {
	ID      string             `json:"id,omitempty"`
	Created time.Time          `json:"created,omitempty"`
	Model   string             `json:"model,omitempty"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

type Client interface {
	Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
