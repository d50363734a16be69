package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wondernav/internal/generator"
	"wondernav/internal/handlers"
)

var boundEnv = []string{
	"STORE_BACKEND", "CHATS_TABLE", "DYNAMODB_ENDPOINT", "REDIS_ADDR", "SQLITE_PATH",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"CACHE_FAILED_GENERATIONS", "PORT", "ENV", "LOG_LEVEL", "TRACING_EXPORTER",
}

// fakeCompletions serves /v1/completions and counts calls.
func fakeCompletions(t *testing.T, text string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["prompt"] != generator.Instruction+"Paris, 3 days" {
			t.Errorf("unexpected prompt: %v", req["prompt"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"index": 0, "text": text}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeTestConfig(t *testing.T, baseURL, sqlitePath string) string {
	t.Helper()
	for _, env := range boundEnv {
		t.Setenv(env, "")
	}
	content := fmt.Sprintf(`
store:
  backend: sqlite
  sqlite_path: %s
openai:
  api_key: sk-test
  base_url: %s
log:
  level: error
`, sqlitePath, baseURL)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewApp_ReadThrough(t *testing.T) {
	srv, calls := fakeCompletions(t, "Day 1: Louvre")
	cfgPath := writeTestConfig(t, srv.URL, filepath.Join(t.TempDir(), "chats.db"))

	a, err := newApp(context.Background(), cfgPath, false)
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 2; i++ {
		resp, err := a.handler.Handle(context.Background(), handlers.Request{Body: "Paris, 3 days"})
		require.NoError(t, err)
		assert.Equal(t, handlers.Response{StatusCode: 200, Body: "Day 1: Louvre"}, resp)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestAskCommand(t *testing.T) {
	srv, calls := fakeCompletions(t, "Day 1: Montmartre")
	cfgPath := writeTestConfig(t, srv.URL, filepath.Join(t.TempDir(), "chats.db"))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ask", "--config", cfgPath, "Paris,", "3", "days"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "Day 1: Montmartre\n", out.String())
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	for _, env := range boundEnv {
		t.Setenv(env, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o600))

	_, err := newApp(context.Background(), path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLambdaCommand_LeavesClientsOpen(t *testing.T) {
	srv, calls := fakeCompletions(t, "Day 1: Orsay")
	cfgPath := writeTestConfig(t, srv.URL, filepath.Join(t.TempDir(), "chats.db"))

	var (
		started any
		options int
	)
	orig := startLambda
	startLambda = func(handler any, opts ...lambda.Option) {
		started = handler
		options = len(opts)
	}
	t.Cleanup(func() { startLambda = orig })

	root := newRootCmd()
	root.SetArgs([]string{"lambda", "--config", cfgPath})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, 2, options)

	invoke, ok := started.(func(context.Context, handlers.Request) (handlers.Response, error))
	require.True(t, ok, "unexpected handler type %T", started)

	// The store must still be open once the runtime loop hands back control.
	resp, err := invoke(context.Background(), handlers.Request{Body: "Paris, 3 days"})
	require.NoError(t, err)
	assert.Equal(t, handlers.Response{StatusCode: 200, Body: "Day 1: Orsay"}, resp)
	assert.EqualValues(t, 1, calls.Load())
}
