// Package config loads compass settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/llm"
	"github.com/newthinker/compass/internal/notifier/telegram"
	"github.com/newthinker/compass/internal/notifier/webhook"
	"github.com/newthinker/compass/internal/predict"
	"github.com/newthinker/compass/internal/provider"
	"github.com/newthinker/compass/internal/regime"
	"github.com/newthinker/compass/internal/risk"
	"github.com/newthinker/compass/internal/scoring"
	"github.com/newthinker/compass/internal/storage/archive"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Regime    RegimeConfig    `mapstructure:"regime"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Risk      risk.Config     `mapstructure:"risk"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Holdings  HoldingsConfig  `mapstructure:"holdings"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
	Notifiers NotifiersConfig `mapstructure:"notifiers"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RegimeConfig holds regime detection and caching settings.
type RegimeConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`

	provider.MarketConfig `mapstructure:",squash"`

	Thresholds regime.Thresholds `mapstructure:"thresholds"`
}

// ScoringConfig holds composite scoring and batch settings.
type ScoringConfig struct {
	Weights          scoring.Weights    `mapstructure:"weights"`
	Thresholds       scoring.Thresholds `mapstructure:"thresholds"`
	BatchConcurrency int                `mapstructure:"batch_concurrency"`
	MaxBatchSize     int                `mapstructure:"max_batch_size"`
	ProviderTimeout  time.Duration      `mapstructure:"provider_timeout"`
}

// ProvidersConfig holds upstream market data settings.
type ProvidersConfig struct {
	RateLimit    provider.RateLimitConfig `mapstructure:"rate_limit"`
	Breaker      provider.BreakerConfig   `mapstructure:"breaker"`
	DefaultQuote string                   `mapstructure:"default_quote"`
	// CryptoVenues are tried in order; known venues are binance and okx.
	CryptoVenues []string `mapstructure:"crypto_venues"`
}

// PredictorConfig enables the LLM-backed model probability.
type PredictorConfig struct {
	Enabled bool `mapstructure:"enabled"`

	LLM    llm.Config     `mapstructure:",squash"`
	Tuning predict.Config `mapstructure:",squash"`
}

// HoldingsConfig selects where stored portfolios live.
type HoldingsConfig struct {
	Type string           `mapstructure:"type"` // "localfs" or "s3"
	Path string           `mapstructure:"path"` // For localfs
	S3   archive.S3Config `mapstructure:"s3"`   // For S3
}

// WatchlistConfig drives the background scorer in serve mode.
type WatchlistConfig struct {
	Interval time.Duration   `mapstructure:"interval"`
	Assets   []WatchlistItem `mapstructure:"assets"`
}

// NotifiersConfig selects where watchlist tier changes are sent. A channel
// is enabled by setting its url or bot token.
type NotifiersConfig struct {
	Webhook  webhook.Config  `mapstructure:"webhook"`
	Telegram telegram.Config `mapstructure:"telegram"`
}

type WatchlistItem struct {
	Ticker     string `mapstructure:"ticker"`
	AssetClass string `mapstructure:"asset_class"`
}

// Load reads configuration from file over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand ${VAR} references in string values
	for _, key := range v.AllKeys() {
		if val, ok := v.Get(key).(string); ok && strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Regime: RegimeConfig{
			TTL:            regime.DefaultTTL,
			RefreshTimeout: 30 * time.Second,
			MarketConfig:   provider.DefaultMarketConfig(),
			Thresholds:     regime.DefaultThresholds(),
		},
		Scoring: ScoringConfig{
			Weights:          scoring.DefaultWeights(),
			Thresholds:       scoring.DefaultThresholds(),
			BatchConcurrency: 8,
			MaxBatchSize:     100,
			ProviderTimeout:  10 * time.Second,
		},
		Risk: risk.DefaultConfig(),
		Providers: ProvidersConfig{
			RateLimit:    provider.RateLimitConfig{RPS: 5, Burst: 10},
			Breaker:      provider.DefaultBreakerConfig(),
			DefaultQuote: "USDT",
			CryptoVenues: []string{"binance", "okx"},
		},
		Predictor: PredictorConfig{
			Tuning: predict.DefaultConfig(),
		},
		Holdings: HoldingsConfig{
			Type: "localfs",
			Path: "./data",
		},
		Watchlist: WatchlistConfig{
			Interval: 15 * time.Minute,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Regime.TTL <= 0 {
		return invalid("regime.ttl must be positive, got %s", c.Regime.TTL)
	}
	if c.Regime.LookbackDays < 1 {
		return invalid("regime.lookback_days must be at least 1, got %d", c.Regime.LookbackDays)
	}
	if err := c.Regime.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Regime.RefreshTimeout <= c.Scoring.ProviderTimeout {
		return invalid("regime.refresh_timeout (%s) must exceed scoring.provider_timeout (%s)",
			c.Regime.RefreshTimeout, c.Scoring.ProviderTimeout)
	}

	if err := c.Scoring.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Scoring.BatchConcurrency < 1 {
		return invalid("scoring.batch_concurrency must be at least 1, got %d", c.Scoring.BatchConcurrency)
	}
	if c.Scoring.MaxBatchSize < 1 {
		return invalid("scoring.max_batch_size must be at least 1, got %d", c.Scoring.MaxBatchSize)
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	for _, venue := range c.Providers.CryptoVenues {
		if venue != "binance" && venue != "okx" {
			return invalid("unknown crypto venue %q", venue)
		}
	}

	if c.Predictor.Enabled {
		switch c.Predictor.LLM.Provider {
		case "claude", "openai":
			if c.Predictor.LLM.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("predictor api_key required when provider is %s", c.Predictor.LLM.Provider))
			}
		case "ollama":
		default:
			return invalid("unknown predictor provider %q", c.Predictor.LLM.Provider)
		}
	}

	switch c.Holdings.Type {
	case "", "localfs":
		if c.Holdings.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("holdings.path required for localfs"))
		}
	case "s3":
		if c.Holdings.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("holdings.s3.bucket required for s3"))
		}
	default:
		return invalid("unknown holdings type %q", c.Holdings.Type)
	}

	if c.Notifiers.Telegram.BotToken != "" && c.Notifiers.Telegram.ChatID == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notifiers.telegram.chat_id required with bot_token"))
	}

	for _, item := range c.Watchlist.Assets {
		if strings.TrimSpace(item.Ticker) == "" {
			return invalid("watchlist entry without ticker")
		}
		if item.AssetClass != "" {
			if _, err := core.ParseAssetClass(item.AssetClass); err != nil {
				return invalid("watchlist %s: %v", item.Ticker, err)
			}
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}
