package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"text":"ok"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL + "///", APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	if _, err := client.Completion(context.Background(), &CompletionRequest{Model: "m", Prompt: "p"}); err != nil {
		t.Fatalf("Completion: %v", err)
	}
	if gotPath != "/v1/completions" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
}

func TestNewClientRejectsNegativeTimeout(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{BaseURL: "http://x", APIKey: "k", UpstreamTimeout: -time.Second}, nil)
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout validation error, got %v", err)
	}
}

func TestCompletionSuccess(t *testing.T) {
	t.Parallel()

	var gotRaw map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotRaw); err != nil {
			t.Errorf("unmarshal request: %v", err)
		}

		resp := providerCompletionResponse{
			ID:      "cmpl-1",
			Object:  "text_completion",
			Created: time.Unix(1_700_000_000, 0).Unix(),
			Model:   "gpt-3.5-turbo-instruct",
			Choices: []providerCompletionChoice{
				{Index: 0, Text: "\n\nDay 1: Eiffel Tower", FinishReason: "stop"},
			},
			Usage: &providerUsage{
				PromptTokens:     60,
				CompletionTokens: 8,
				TotalTokens:      68,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	resp, err := client.Completion(context.Background(), &CompletionRequest{
		Model:     "gpt-3.5-turbo-instruct",
		Prompt:    "Paris, 3 days",
		MaxTokens: 900,
	})
	if err != nil {
		t.Fatalf("Completion: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected Authorization header: %s", gotAuth)
	}
	if gotRaw["model"] != "gpt-3.5-turbo-instruct" || gotRaw["prompt"] != "Paris, 3 days" {
		t.Fatalf("unexpected request body: %#v", gotRaw)
	}
	if gotRaw["max_tokens"] != float64(900) {
		t.Fatalf("expected max_tokens 900, got %#v", gotRaw["max_tokens"])
	}
	for _, k := range []string{"temperature", "top_p", "stream"} {
		if _, ok := gotRaw[k]; ok {
			t.Fatalf("request must not set %q: %#v", k, gotRaw)
		}
	}

	if len(resp.Choices) != 1 || resp.Choices[0].Text != "\n\nDay 1: Eiffel Tower" {
		t.Fatalf("unexpected choices: %#v", resp.Choices)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 68 {
		t.Fatalf("usage not mapped correctly: %#v", resp.Usage)
	}
}

func TestCompletionZeroChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-2","object":"text_completion","choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	resp, err := client.Completion(context.Background(), &CompletionRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Completion: %v", err)
	}
	if len(resp.Choices) != 0 {
		t.Fatalf("expected zero choices, got %#v", resp.Choices)
	}
}

func TestCompletionUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "bad"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	_, err = client.Completion(context.Background(), &CompletionRequest{Model: "m", Prompt: "p"})

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusUnauthorized || upErr.Type != "invalid_request_error" {
		t.Fatalf("unexpected upstream error: %#v", upErr)
	}
}

func TestCompletionSingleAttemptOnServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	_, err = client.Completion(context.Background(), &CompletionRequest{Model: "m", Prompt: "p"})

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusServiceUnavailable || upErr.Message != "overloaded" {
		t.Fatalf("unexpected upstream error: %#v", upErr)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", got)
	}
}

func TestCompletionLargePromptIsSent(t *testing.T) {
	t.Parallel()

	prompt := strings.Repeat("Paris, 3 days. ", 40_000) // ~600 KB

	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req providerCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotLen = len(req.Prompt)
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"text":"ok"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	if _, err := client.Completion(context.Background(), &CompletionRequest{Model: "m", Prompt: prompt}); err != nil {
		t.Fatalf("Completion: %v", err)
	}
	if gotLen != len(prompt) {
		t.Fatalf("expected %d prompt bytes upstream, got %d", len(prompt), gotLen)
	}
}

func TestCompletionUpstreamTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewClient(Config{
		BaseURL:         srv.URL,
		APIKey:          "k",
		UpstreamTimeout: 20 * time.Millisecond,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	_, err = client.Completion(context.Background(), &CompletionRequest{Model: "m", Prompt: "p"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCompletionValidationError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("server should not be called for invalid request")
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "key",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer closeClient(client)

	_, err = client.Completion(context.Background(), &CompletionRequest{Prompt: "no model"})
	if err == nil || !strings.Contains(err.Error(), "invalid request") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func closeClient(c Client) {
	if closer, ok := c.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
