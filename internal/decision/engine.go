// Package decision is the entry point of the decision engine. It fetches
// inputs from external providers, keeps the current regime cached and hands
// already-fetched values to the regime, scoring and risk packages.
package decision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/regime"
	"github.com/newthinker/compass/internal/risk"
	"github.com/newthinker/compass/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provider names used in logs and metrics.
const (
	ProviderMarketData = "market_data"
	ProviderTechnical  = "technical"
	ProviderML         = "ml_prediction"
	ProviderHoldings   = "holdings"
)

// Config holds engine settings.
type Config struct {
	Cache            regime.CacheConfig
	BatchConcurrency int
	MaxBatchSize     int
	// ProviderTimeout bounds each individual provider call.
	ProviderTimeout time.Duration
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Cache:            regime.CacheConfig{TTL: regime.DefaultTTL},
		BatchConcurrency: 8,
		MaxBatchSize:     100,
		ProviderTimeout:  10 * time.Second,
	}
}

// Components are the collaborators an Engine orchestrates. ML and Holdings
// are optional: without ML every signal is scored without a model
// probability, and without Holdings ValidatePortfolio is unavailable.
type Components struct {
	Detector  *regime.Detector
	Scorer    *scoring.Scorer
	Risk      *risk.Manager
	Market    MarketDataProvider
	Technical TechnicalIndicatorProvider
	ML        MLPredictionProvider
	Holdings  HoldingsProvider
}

// AssetRef identifies an asset to score.
type AssetRef struct {
	Ticker     string          `json:"ticker" validate:"required,max=32"`
	AssetClass core.AssetClass `json:"asset_class,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the clock used by the regime cache.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the decision facade. It is safe for concurrent use.
type Engine struct {
	cfg     Config
	c       Components
	cache   *regime.Cache
	logger  *zap.Logger
	metrics Metrics
	now     func() time.Time
}

// New validates the components and creates an engine.
func New(cfg Config, c Components, opts ...Option) (*Engine, error) {
	switch {
	case c.Detector == nil:
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("regime detector is required"))
	case c.Scorer == nil:
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("scorer is required"))
	case c.Risk == nil:
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("risk manager is required"))
	case c.Market == nil:
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("market data provider is required"))
	case c.Technical == nil:
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("technical indicator provider is required"))
	}

	def := DefaultConfig()
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = def.BatchConcurrency
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}

	e := &Engine{
		cfg:     cfg,
		c:       c,
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.cache = regime.NewCache(cfg.Cache, e.loadRegime,
		regime.WithCacheClock(e.now),
		regime.WithCacheLogger(e.logger),
		regime.WithLookupHook(e.metrics.RecordRegimeLookup),
	)
	return e, nil
}

// Regime returns the current regime, recomputing it when the cached state
// has expired.
func (e *Engine) Regime(ctx context.Context) (regime.State, error) {
	return e.cache.Get(ctx)
}

// RefreshRegime discards the cached regime and recomputes it.
func (e *Engine) RefreshRegime(ctx context.Context) (regime.State, error) {
	e.cache.Invalidate()
	return e.cache.Get(ctx)
}

// ScoreAsset fetches inputs for one asset and scores it against the current regime.
func (e *Engine) ScoreAsset(ctx context.Context, ticker string, class core.AssetClass) (scoring.AssetSignal, error) {
	ref, err := normalizeRef(AssetRef{Ticker: ticker, AssetClass: class})
	if err != nil {
		return scoring.AssetSignal{}, err
	}

	st, err := e.Regime(ctx)
	if err != nil {
		return scoring.AssetSignal{}, err
	}

	in := e.fetchInputs(ctx, ref)
	if err := ctx.Err(); err != nil {
		return scoring.AssetSignal{}, err
	}

	sig := e.c.Scorer.Score(in, st)
	e.record(sig)
	return sig, nil
}

// ScoreBatch scores many assets against one regime snapshot. Results are
// returned in request order.
func (e *Engine) ScoreBatch(ctx context.Context, refs []AssetRef) ([]scoring.AssetSignal, error) {
	if len(refs) > e.cfg.MaxBatchSize {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("batch of %d assets exceeds limit of %d", len(refs), e.cfg.MaxBatchSize))
	}
	normalized := make([]AssetRef, len(refs))
	for i, ref := range refs {
		n, err := normalizeRef(ref)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}
	if len(normalized) == 0 {
		return []scoring.AssetSignal{}, nil
	}

	start := e.now()
	st, err := e.Regime(ctx)
	if err != nil {
		return nil, err
	}

	inputs := make([]scoring.AssetInput, len(normalized))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.BatchConcurrency)
	for i, ref := range normalized {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			inputs[i] = e.fetchInputs(gctx, ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored, err := e.c.Scorer.ScoreBatch(ctx, inputs, st, e.cfg.BatchConcurrency)
	if err != nil {
		return nil, err
	}

	byKey := make(map[AssetRef]scoring.AssetSignal, len(scored))
	for _, sig := range scored {
		byKey[AssetRef{Ticker: sig.Ticker, AssetClass: sig.AssetClass}] = sig
	}
	out := make([]scoring.AssetSignal, len(normalized))
	for i, ref := range normalized {
		out[i] = byKey[ref]
		e.record(out[i])
	}

	e.metrics.RecordBatch(len(out), e.now().Sub(start).Seconds())
	e.logger.Debug("batch scored",
		zap.Int("assets", len(out)),
		zap.String("regime", string(st.Regime)),
	)
	return out, nil
}

// AllocationLimits returns the limits in force for the current regime.
func (e *Engine) AllocationLimits(ctx context.Context) (risk.AllocationLimits, error) {
	st, err := e.Regime(ctx)
	if err != nil {
		return risk.AllocationLimits{}, err
	}
	return e.c.Risk.LimitsFor(st), nil
}

// ValidateAllocation checks proposed positions against the current limits.
// Breached limits are reported in the snapshot's compliance, not as errors.
func (e *Engine) ValidateAllocation(ctx context.Context, positions []risk.Position) (risk.Snapshot, error) {
	snap, err := risk.NewSnapshot(positions)
	if err != nil {
		return risk.Snapshot{}, err
	}

	limits, err := e.AllocationLimits(ctx)
	if err != nil {
		return risk.Snapshot{}, err
	}

	out := e.c.Risk.Validate(snap, limits)
	rules := make([]string, len(out.Compliance.Violations))
	for i, v := range out.Compliance.Violations {
		rules[i] = v.Rule
	}
	e.metrics.RecordValidation(out.Compliance.WithinLimits, rules)
	return out, nil
}

// ValidatePortfolio loads a stored portfolio and validates it.
func (e *Engine) ValidatePortfolio(ctx context.Context, portfolioID string) (risk.Snapshot, error) {
	if e.c.Holdings == nil {
		return risk.Snapshot{}, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no holdings provider configured"))
	}
	if strings.TrimSpace(portfolioID) == "" {
		return risk.Snapshot{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("portfolio id is empty"))
	}

	pctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	positions, err := e.c.Holdings.Holdings(pctx, portfolioID)
	cancel()
	if err != nil {
		if !errors.Is(err, core.ErrPortfolioNotFound) {
			e.metrics.RecordProviderError(ProviderHoldings)
		}
		return risk.Snapshot{}, err
	}
	return e.ValidateAllocation(ctx, positions)
}

// loadRegime is the cache loader. Provider failures become missing inputs
// and the detector marks the state degraded. ctx is the cache's refresh
// context, detached from any caller, so its expiry also yields a degraded
// state rather than an error.
func (e *Engine) loadRegime(ctx context.Context) (regime.State, error) {
	var vix, trend *float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vix = e.call(gctx, ProviderMarketData, "vix", e.c.Market.VIX)
		return nil
	})
	g.Go(func() error {
		trend = e.call(gctx, ProviderMarketData, "trend_pct", e.c.Market.TrendPct)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		e.metrics.RecordProviderError(ProviderMarketData)
		e.logger.Warn("regime refresh timed out, missing inputs treated as unavailable",
			zap.Bool("vix", vix != nil),
			zap.Bool("trend_pct", trend != nil),
			zap.Error(err),
		)
	}

	st := e.c.Detector.Detect(vix, trend)
	e.metrics.RecordRegimeRefresh(string(st.Regime), st.Degraded)
	e.logger.Info("regime computed",
		zap.String("regime", string(st.Regime)),
		zap.Float64("score", st.Score),
		zap.Bool("degraded", st.Degraded),
	)
	return st, nil
}

// fetchInputs gathers the asset-level inputs concurrently. It never fails:
// unavailable inputs are left nil.
func (e *Engine) fetchInputs(ctx context.Context, ref AssetRef) scoring.AssetInput {
	in := scoring.AssetInput{Ticker: ref.Ticker, AssetClass: ref.AssetClass}

	var g errgroup.Group
	g.Go(func() error {
		tctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
		defer cancel()
		tech, err := e.c.Technical.Technicals(tctx, ref.Ticker, ref.AssetClass)
		if err != nil {
			e.providerFailed(ctx, ProviderTechnical, ref.Ticker, err)
			return nil
		}
		in.TechnicalScore = tech.Score
		in.MomentumScore = tech.Momentum
		return nil
	})
	if e.c.ML != nil {
		g.Go(func() error {
			in.MLProbability = e.call(ctx, ProviderML, ref.Ticker, func(ctx context.Context) (float64, error) {
				return e.c.ML.Probability(ctx, ref.Ticker, ref.AssetClass)
			})
			return nil
		})
	}
	_ = g.Wait()
	return in
}

// call runs one scalar provider call under the provider timeout.
func (e *Engine) call(ctx context.Context, provider, subject string, fn func(context.Context) (float64, error)) *float64 {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	defer cancel()

	v, err := fn(cctx)
	if err != nil {
		e.providerFailed(ctx, provider, subject, err)
		return nil
	}
	return &v
}

func (e *Engine) providerFailed(ctx context.Context, provider, subject string, err error) {
	if ctx.Err() != nil {
		return
	}
	e.metrics.RecordProviderError(provider)
	e.logger.Warn("provider failed, input treated as missing",
		zap.String("provider", provider),
		zap.String("subject", subject),
		zap.Error(err),
	)
}

func (e *Engine) record(sig scoring.AssetSignal) {
	e.metrics.RecordSignal(string(sig.AssetClass), string(sig.Signal), sig.Gated, sig.Degraded)
}

func normalizeRef(ref AssetRef) (AssetRef, error) {
	ticker := strings.ToUpper(strings.TrimSpace(ref.Ticker))
	if ticker == "" {
		return AssetRef{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("ticker is empty"))
	}
	class := core.AssetEquity
	if ref.AssetClass != "" {
		c, err := core.ParseAssetClass(string(ref.AssetClass))
		if err != nil {
			return AssetRef{}, err
		}
		class = c
	}
	return AssetRef{Ticker: ticker, AssetClass: class}, nil
}
