// Package telegram sends signal changes through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/notifier"
)

const baseURL = "https://api.telegram.org"

// Config holds Telegram settings.
type Config struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(cfg Config) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		baseURL:  baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// NewWithBaseURL creates a notifier against a custom API endpoint (for testing).
func NewWithBaseURL(cfg Config, u string) (*Telegram, error) {
	t, err := New(cfg)
	if err != nil {
		return nil, err
	}
	t.baseURL = strings.TrimSuffix(u, "/")
	return t, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, changes []notifier.Change) error {
	if len(changes) == 0 {
		return nil
	}

	var sb strings.Builder
	if len(changes) > 1 {
		fmt.Fprintf(&sb, "📊 *%d Signal Changes*\n\n", len(changes))
	}
	for i, c := range changes {
		sb.WriteString(formatChange(c))
		if i < len(changes)-1 {
			sb.WriteString("\n---\n\n")
		}
	}
	return t.sendMessage(ctx, sb.String())
}

func formatChange(c notifier.Change) string {
	var sb strings.Builder

	emoji := "⏸️"
	switch c.To {
	case core.ActionStrongBuy, core.ActionBuy:
		emoji = "📈"
	case core.ActionReduce, core.ActionSell:
		emoji = "📉"
	}

	fmt.Fprintf(&sb, "%s *%s* %s → %s\n", emoji, c.Ticker, c.From, c.To)
	fmt.Fprintf(&sb, "📊 Score: %.2f\n", c.CompositeScore)
	fmt.Fprintf(&sb, "🌡 Regime: %s\n", c.Regime)
	if c.Gated {
		sb.WriteString("🚧 Buy tier capped by regime\n")
	}
	fmt.Fprintf(&sb, "⏰ Time: %s", c.DetectedAt.Format("2006-01-02 15:04:05"))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
