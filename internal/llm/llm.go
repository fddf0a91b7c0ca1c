// Package llm wraps text-generation providers behind one Generator interface.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Request is one text-generation call.
type Request struct {
	SystemPrompt    string
	UserContent     string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Generator produces text for a request. Failures are apperr service errors;
// transient ones also wrap a *RetryableError.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures a provider client.
type Options struct {
	Provider string // openai, eino, gemini, anthropic
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Provider is a Generator that knows its name and releases resources on Close.
type Provider interface {
	Generator
	Name() string
	Close()
}

// New builds the provider named in opts.
func New(ctx context.Context, opts Options) (Provider, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	switch opts.Provider {
	case "", "openai":
		return NewOpenAIClient(opts), nil
	case "eino":
		return NewEinoClient(ctx, opts)
	case "gemini":
		return NewGeminiClient(ctx, opts)
	case "anthropic":
		return NewAnthropicClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
