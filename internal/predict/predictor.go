// Package predict derives outperformance probabilities from a language
// model.
package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/llm"
)

const systemPrompt = `You are a quantitative analyst. Estimate the probability that the given asset
outperforms its benchmark over the next 20 trading days.
Respond with a single JSON object: {"probability": <number between 0 and 1>, "rationale": "<one sentence>"}.`

// Config tunes the predictor.
type Config struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	// RPS caps model calls per second; 0 disables the cap.
	RPS float64 `mapstructure:"rps"`
}

// DefaultConfig returns the predictor defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 200, Temperature: 0.2, RPS: 2}
}

// LLMPredictor implements decision.MLPredictionProvider with an LLM.
type LLMPredictor struct {
	llm      llm.Provider
	cfg      Config
	limiter  *rate.Limiter
	equities collector.Collector
	crypto   collector.Collector
	logger   *zap.Logger
	newID    func() string
}

// Option configures an LLMPredictor.
type Option func(*LLMPredictor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *LLMPredictor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithQuotes adds the latest quote of the asset to the prompt when one of
// the collectors can supply it.
func WithQuotes(equities, crypto collector.Collector) Option {
	return func(p *LLMPredictor) {
		p.equities, p.crypto = equities, crypto
	}
}

// NewLLMPredictor creates a predictor over provider.
func NewLLMPredictor(provider llm.Provider, cfg Config, opts ...Option) *LLMPredictor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	p := &LLMPredictor{
		llm:     provider,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probability asks the model for the probability that ticker outperforms.
// Upstream failures are core.ErrLLMFailed. An unparseable or out-of-range
// answer is core.ErrNoData, so the caller scores without the factor.
func (p *LLMPredictor) Probability(ctx context.Context, ticker string, class core.AssetClass) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	id := p.newID()
	resp, err := p.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      p.prompt(ctx, ticker, class),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		JSON:        true,
		RequestID:   id,
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, core.WrapError(core.ErrLLMFailed, fmt.Errorf("%s: %w", p.llm.Name(), err))
	}

	prob, err := ParseProbability(resp.Text)
	if err != nil {
		p.logger.Debug("discarding model answer",
			zap.String("request_id", id),
			zap.String("ticker", ticker),
			zap.String("answer", truncate(resp.Text, 200)),
			zap.Error(err),
		)
		return 0, err
	}

	p.logger.Debug("model probability",
		zap.String("request_id", id),
		zap.String("ticker", ticker),
		zap.Float64("probability", prob),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)
	return prob, nil
}

func (p *LLMPredictor) prompt(ctx context.Context, ticker string, class core.AssetClass) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Asset: %s\nAsset class: %s\n", ticker, class)

	source := p.equities
	if class == core.AssetCrypto {
		source = p.crypto
	}
	if source != nil {
		q, err := source.FetchQuote(ctx, ticker)
		if err != nil {
			p.logger.Debug("quote unavailable for prompt", zap.String("ticker", ticker), zap.Error(err))
		} else {
			fmt.Fprintf(&sb, "Last price: %.4g\nChange since previous close: %.2f%%\n", q.Price, q.ChangePercent)
		}
	}
	return sb.String()
}

// ParseProbability extracts the probability from a model answer. Markdown
// code fences around the JSON object are tolerated.
func ParseProbability(text string) (float64, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var answer struct {
		Probability *float64 `json:"probability"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &answer); err != nil {
		return 0, core.WrapError(core.ErrNoData, fmt.Errorf("parsing model answer: %w", err))
	}
	if answer.Probability == nil {
		return 0, core.WrapError(core.ErrNoData, fmt.Errorf("model answer has no probability"))
	}
	v := *answer.Probability
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, core.WrapError(core.ErrNoData, fmt.Errorf("probability %v outside [0, 1]", v))
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
