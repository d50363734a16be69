package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the completions endpoint settings. Only BaseURL and APIKey are required.
type Config struct {
	BaseURL string
	APIKey  string

	// UpstreamTimeout bounds one completion call. Zero leaves it to the caller's ctx.
	UpstreamTimeout time.Duration

	// HTTPClient replaces the default client; tests point it at httptest servers.
	HTTPClient *http.Client
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if c.APIKey == "" {
		return errors.New("API key is required")
	}
	if c.UpstreamTimeout < 0 {
		return errors.New("upstream timeout must not be negative")
	}
	return nil
}

type client struct {
	completionsURL string
	apiKey         string
	timeout        time.Duration
	httpClient     *http.Client
	logger         *zap.Logger
}

// NewClient creates a completions client. Build it once per process and share it.
func NewClient(cfg Config, logger *zap.Logger) (Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("llmclient: invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}

	return &client{
		completionsURL: strings.TrimRight(cfg.BaseURL, "/") + "/v1/completions",
		apiKey:         cfg.APIKey,
		timeout:        cfg.UpstreamTimeout,
		httpClient:     httpClient,
		logger:         logger.Named("llmclient"),
	}, nil
}

// Close drops idle keep-alive connections.
func (c *client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
