package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/collector/crypto"
	"github.com/newthinker/compass/internal/collector/crypto/binance"
	"github.com/newthinker/compass/internal/collector/crypto/okx"
	"github.com/newthinker/compass/internal/collector/yahoo"
	"github.com/newthinker/compass/internal/config"
	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/llm/factory"
	"github.com/newthinker/compass/internal/metrics"
	"github.com/newthinker/compass/internal/notifier"
	"github.com/newthinker/compass/internal/notifier/telegram"
	"github.com/newthinker/compass/internal/notifier/webhook"
	"github.com/newthinker/compass/internal/predict"
	"github.com/newthinker/compass/internal/provider"
	"github.com/newthinker/compass/internal/regime"
	"github.com/newthinker/compass/internal/risk"
	"github.com/newthinker/compass/internal/scoring"
	"github.com/newthinker/compass/internal/storage/archive"
)

// overrides replace live provider inputs with fixed values.
type overrides struct {
	market    provider.StaticMarket
	technical *provider.StaticTechnical
	ml        *float64
}

// stack is a fully wired engine with the pieces commands need directly.
type stack struct {
	engine   *decision.Engine
	holdings *provider.Holdings
	sources  *collector.Registry
}

// buildStack wires collectors, providers and the decision engine from cfg.
// reg may be nil.
func buildStack(cfg *config.Config, log *zap.Logger, reg *metrics.Registry, ov overrides) (*stack, error) {
	observe := func(breaker, to string) {
		log.Warn("circuit breaker state change", zap.String("breaker", breaker), zap.String("state", to))
		if reg != nil {
			reg.RecordBreakerStateChange(breaker, to)
		}
	}
	limiter := provider.NewLimiter(cfg.Providers.RateLimit)

	sources := collector.NewRegistry()
	for _, c := range []collector.Collector{yahoo.New(), binance.New(), okx.New()} {
		sources.Register(provider.Guard(c, limiter, cfg.Providers.Breaker, observe))
	}

	equities, _ := sources.Get("yahoo")
	venues := make([]collector.Collector, 0, len(cfg.Providers.CryptoVenues))
	for _, name := range cfg.Providers.CryptoVenues {
		v, ok := sources.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown crypto venue %q", name)
		}
		venues = append(venues, v)
	}
	cryptoSource := crypto.New(cfg.Providers.DefaultQuote, venues...)

	detector, err := regime.NewDetector(cfg.Regime.Thresholds, regime.WithReporter(regime.NewLogReporter(log)))
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewScorer(scoring.Config{
		Weights:    cfg.Scoring.Weights,
		Thresholds: cfg.Scoring.Thresholds,
	})
	if err != nil {
		return nil, err
	}
	riskMgr, err := risk.NewManager(cfg.Risk)
	if err != nil {
		return nil, err
	}

	var market decision.MarketDataProvider = provider.NewMarketData(equities, cfg.Regime.MarketConfig)
	if ov.market.VIXLevel != nil || ov.market.Trend != nil {
		market = provider.Overlay{Base: market, Override: ov.market}
	}

	var technical decision.TechnicalIndicatorProvider = provider.NewTechnical(equities, cryptoSource)
	if ov.technical != nil {
		technical = *ov.technical
	}

	var ml decision.MLPredictionProvider
	switch {
	case ov.ml != nil:
		ml = provider.StaticProbability(*ov.ml)
	case cfg.Predictor.Enabled:
		llmProvider, err := factory.New(cfg.Predictor.LLM)
		if err != nil {
			return nil, fmt.Errorf("creating predictor: %w", err)
		}
		ml = predict.NewLLMPredictor(llmProvider, cfg.Predictor.Tuning,
			predict.WithLogger(log),
			predict.WithQuotes(equities, cryptoSource),
		)
		log.Info("model probability enabled", zap.String("llm", llmProvider.Name()))
	}

	store, err := newArchive(cfg.Holdings)
	if err != nil {
		return nil, err
	}
	holdings := provider.NewHoldings(store)

	opts := []decision.Option{decision.WithLogger(log)}
	if reg != nil {
		opts = append(opts, decision.WithMetrics(reg))
	}
	engine, err := decision.New(decision.Config{
		Cache: regime.CacheConfig{
			TTL:            cfg.Regime.TTL,
			RefreshTimeout: cfg.Regime.RefreshTimeout,
		},
		BatchConcurrency: cfg.Scoring.BatchConcurrency,
		MaxBatchSize:     cfg.Scoring.MaxBatchSize,
		ProviderTimeout:  cfg.Scoring.ProviderTimeout,
	}, decision.Components{
		Detector:  detector,
		Scorer:    scorer,
		Risk:      riskMgr,
		Market:    market,
		Technical: technical,
		ML:        ml,
		Holdings:  holdings,
	}, opts...)
	if err != nil {
		return nil, err
	}

	return &stack{engine: engine, holdings: holdings, sources: sources}, nil
}

func newArchive(cfg config.HoldingsConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(cfg.S3)
	default:
		return archive.NewLocalFS(cfg.Path)
	}
}

// watchlist converts configured watchlist entries to normalized asset refs.
func watchlist(items []config.WatchlistItem) ([]decision.AssetRef, error) {
	refs := make([]decision.AssetRef, 0, len(items))
	for _, item := range items {
		class := core.AssetEquity
		if item.AssetClass != "" {
			c, err := core.ParseAssetClass(item.AssetClass)
			if err != nil {
				return nil, err
			}
			class = c
		}
		refs = append(refs, decision.AssetRef{
			Ticker:     strings.ToUpper(strings.TrimSpace(item.Ticker)),
			AssetClass: class,
		})
	}
	return refs, nil
}

// newNotifiers builds the channels enabled in cfg.
func newNotifiers(cfg config.NotifiersConfig) (*notifier.Registry, error) {
	reg := notifier.NewRegistry()
	if cfg.Webhook.URL != "" {
		w, err := webhook.New(cfg.Webhook)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(w); err != nil {
			return nil, err
		}
	}
	if cfg.Telegram.BotToken != "" {
		t, err := telegram.New(cfg.Telegram)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
