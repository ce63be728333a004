package factory

import (
	"testing"

	"github.com/newthinker/compass/internal/llm"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg  llm.Config
		want string
	}{
		{llm.Config{Provider: "claude", APIKey: "test-key"}, "claude"},
		{llm.Config{Provider: "openai", APIKey: "test-key", Model: "gpt-4o"}, "openai"},
		{llm.Config{Provider: "ollama", BaseURL: "http://localhost:11434"}, "ollama"},
	}

	for _, tt := range tests {
		p, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.want, err)
		}
		if p.Name() != tt.want {
			t.Errorf("expected %s provider, got %s", tt.want, p.Name())
		}
	}
}

func TestNew_Errors(t *testing.T) {
	tests := map[string]llm.Config{
		"unknown":       {Provider: "unknown"},
		"empty":         {},
		"claude no key": {Provider: "claude"},
		"openai no key": {Provider: "openai"},
	}

	for name, cfg := range tests {
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
