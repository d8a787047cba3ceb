package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"github.com/lazypower/lumine/internal/config"
)

// ErrUnavailable is returned when no AI provider is configured.
var ErrUnavailable = errors.New("ai provider unavailable")

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
	// Available reports whether the provider has what it needs to be called.
	Available() bool
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// Options are the transport settings shared by the HTTP providers.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint
}

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	opts := Options{Timeout: cfg.Timeout, MaxRetries: cfg.MaxRetries}
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		return NewAnthropic(cfg.AnthropicKey, cfg.Model, opts), nil
	case "gemini":
		if cfg.GoogleKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_API_KEY or config")
		}
		return NewGemini(cfg.GoogleKey, cfg.Model, opts), nil
	case "ollama":
		opts.BaseURL = cfg.OllamaURL
		return NewOllama(cfg.OllamaModel, opts), nil
	case "none", "":
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

func newHTTPClient(opts Options, defaultURL string) *resty.Client {
	client := resty.New()
	if opts.BaseURL == "" {
		opts.BaseURL = defaultURL
	}
	client.SetBaseURL(opts.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return client
}

// post sends body to path and decodes a 2xx reply into result, retrying
// transport failures, 5xx and 429 with backoff.
func post(ctx context.Context, client *resty.Client, provider, path string, maxRetries uint, body, result any) error {
	return retry.Do(
		func() error {
			response, err := client.R().
				SetContext(ctx).
				SetBody(body).
				SetResult(result).
				Post(path)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return fmt.Errorf("%s api: %w", provider, err)
			}
			if response.IsError() {
				statusErr := &StatusError{Provider: provider, Code: response.StatusCode(), Body: response.String()}
				if !statusErr.Retryable() {
					return retry.Unrecoverable(statusErr)
				}
				return statusErr
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxRetries+1),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.LastErrorOnly(true),
	)
}
