// Package factory builds the configured llm.Provider.
package factory

import (
	"fmt"

	"github.com/newthinker/compass/internal/llm"
	"github.com/newthinker/compass/internal/llm/claude"
	"github.com/newthinker/compass/internal/llm/ollama"
	"github.com/newthinker/compass/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg llm.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg)
	case "openai":
		return openai.New(cfg)
	case "ollama":
		return ollama.New(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
