package decision

import (
	"context"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/risk"
)

// MarketDataProvider supplies the market-wide inputs of regime detection.
type MarketDataProvider interface {
	// VIX returns the latest volatility index level.
	VIX(ctx context.Context) (float64, error)
	// TrendPct returns the broad index change over the configured lookback, in percent.
	TrendPct(ctx context.Context) (float64, error)
}

// Technicals holds the indicator-derived inputs for one asset.
// Nil fields are unavailable.
type Technicals struct {
	Score    *float64 // 0..100
	Momentum *float64 // -100..100
}

// TechnicalIndicatorProvider computes technical and momentum scores.
type TechnicalIndicatorProvider interface {
	Technicals(ctx context.Context, ticker string, class core.AssetClass) (Technicals, error)
}

// MLPredictionProvider returns the modelled probability, in [0, 1], that an
// asset outperforms.
type MLPredictionProvider interface {
	Probability(ctx context.Context, ticker string, class core.AssetClass) (float64, error)
}

// HoldingsProvider loads the current positions of a stored portfolio.
// Unknown portfolios return core.ErrPortfolioNotFound.
type HoldingsProvider interface {
	Holdings(ctx context.Context, portfolioID string) ([]risk.Position, error)
}

// Metrics receives decision events. *metrics.Registry implements it.
type Metrics interface {
	RecordRegimeRefresh(regime string, degraded bool)
	RecordRegimeLookup(result string)
	RecordSignal(assetClass, signal string, gated, degraded bool)
	RecordProviderError(provider string)
	RecordValidation(withinLimits bool, rules []string)
	RecordBatch(size int, duration float64)
}

type nopMetrics struct{}

func (nopMetrics) RecordRegimeRefresh(string, bool)        {}
func (nopMetrics) RecordRegimeLookup(string)               {}
func (nopMetrics) RecordSignal(string, string, bool, bool) {}
func (nopMetrics) RecordProviderError(string)              {}
func (nopMetrics) RecordValidation(bool, []string)         {}
func (nopMetrics) RecordBatch(int, float64)                {}
