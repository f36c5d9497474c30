// Package llm provides clients for generative-text providers.
package llm

import (
	"context"
)

// Client defines the interface for generative-text providers. Generate
// makes exactly one attempt; callers own any fallback behavior.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}
