package tts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/stackchan/go-stackchan/internal/httpc"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// BaseURL overrides the backend's default endpoint (tests).
	BaseURL string

	// Timeout for the synthesis request.
	Timeout time.Duration

	// HTTPClient overrides the shared transport (tests).
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client used for synthesis requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:    httpc.DefaultTimeout,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
