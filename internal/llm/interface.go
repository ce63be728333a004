// Package llm abstracts the chat-completion backends used for model
// predictions.
package llm

import (
	"context"
	"time"
)

// Provider completes a single-turn prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is one prompt.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks the backend to answer with a single JSON object.
	JSON bool
	// RequestID tags the upstream call for tracing.
	RequestID string
}

// Response is the completion text and its token usage.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// Config selects and configures a backend.
type Config struct {
	Provider string        `mapstructure:"provider"` // claude, openai or ollama
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultMaxTokens caps completions when a request sets no limit.
const DefaultMaxTokens = 256
