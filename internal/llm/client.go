// Package llm submits prompts to a hosted generative text model and returns the raw completion.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// Client completes a prompt with free-form text. An empty model selects the client's default.
type Client interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

var (
	// ErrMissingCredentials is a configuration error: the provider key is absent or rejected.
	ErrMissingCredentials = errors.New("missing or invalid API key")
	// ErrQuotaExceeded is reported to the caller and never retried.
	ErrQuotaExceeded = errors.New("API quota exceeded, please try again later")
)

// APIError wraps any other provider failure.
type APIError struct {
	Provider string
	Err      error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return "API error"
	}
	return "API error: " + e.Err.Error()
}

func (e *APIError) Unwrap() error { return e.Err }

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the configured client. When the key is missing it returns a Disabled client together
// with ErrMissingCredentials so the caller can log it and keep serving non-generation routes.
func New(ctx context.Context, opts Options) (Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return Disabled{}, ErrMissingCredentials
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	switch strings.ToLower(opts.Provider) {
	case "", ProviderGemini:
		return NewGeminiClient(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAIClient(opts)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}

// Disabled fails every call with ErrMissingCredentials.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", ErrMissingCredentials
}

// classifyMessage is the provider-agnostic fallback used when no typed error matched.
func classifyMessage(provider string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	case strings.Contains(msg, "api key"), strings.Contains(msg, "api_key"):
		return fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}
	return &APIError{Provider: provider, Err: err}
}

func classifyStatus(provider string, status int, err error) error {
	switch status {
	case 429:
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	case 401, 403:
		return fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}
	return classifyMessage(provider, err)
}
