// Package llm is the text-generation boundary: one prompt in, one completion out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AngelCh415/smartreach/internal/config"
)

type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	// Purpose labels the call for logs and metrics (research, enrich, content, quality, feedback).
	Purpose string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

var ErrNotConfigured = errors.New("llm provider not configured")

type Kind string

const (
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindTransport Kind = "transport"
	KindProvider  Kind = "provider"
	KindEmpty     Kind = "empty"
)

// Error is the uniform failure every provider returns.
type Error struct {
	Provider string
	Kind     Kind
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable is true for rate limits, transport failures and 5xx responses.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTransport:
		return true
	case KindProvider:
		return e.Status >= 500
	}
	return false
}

func retryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// New builds the generator selected by cfg. A missing credential is a configuration error.
func New(ctx context.Context, cfg config.LLM, opts ...Option) (Generator, error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: o.httpClient,
			Retries:    o.retries,
		}), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
		}
		return NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	}
	return nil, fmt.Errorf("unknown provider %q: %w", cfg.Provider, ErrNotConfigured)
}
