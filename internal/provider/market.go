package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

// MarketConfig names the instruments behind the regime inputs.
type MarketConfig struct {
	VIXSymbol    string `mapstructure:"vix_symbol"`
	IndexSymbol  string `mapstructure:"index_symbol"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// DefaultMarketConfig reads the CBOE VIX and the S&P 500 over 20 days.
func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		VIXSymbol:    "^VIX",
		IndexSymbol:  "^GSPC",
		LookbackDays: 20,
	}
}

// MarketData implements decision.MarketDataProvider over a collector.
type MarketData struct {
	source collector.Collector
	cfg    MarketConfig
	now    func() time.Time
}

// NewMarketData creates a market data provider. Empty config fields take
// their defaults.
func NewMarketData(source collector.Collector, cfg MarketConfig) *MarketData {
	def := DefaultMarketConfig()
	if cfg.VIXSymbol == "" {
		cfg.VIXSymbol = def.VIXSymbol
	}
	if cfg.IndexSymbol == "" {
		cfg.IndexSymbol = def.IndexSymbol
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = def.LookbackDays
	}
	return &MarketData{source: source, cfg: cfg, now: time.Now}
}

// VIX returns the latest volatility index level.
func (m *MarketData) VIX(ctx context.Context) (float64, error) {
	q, err := m.source.FetchQuote(ctx, m.cfg.VIXSymbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// TrendPct returns the index close-to-close change over the lookback window.
func (m *MarketData) TrendPct(ctx context.Context) (float64, error) {
	end := m.now()
	start := end.AddDate(0, 0, -m.cfg.LookbackDays)

	bars, err := m.source.FetchHistory(ctx, m.cfg.IndexSymbol, start, end, "1d")
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, core.WrapError(core.ErrNoData,
			fmt.Errorf("%d bars for %s over %d days", len(bars), m.cfg.IndexSymbol, m.cfg.LookbackDays))
	}

	first, last := bars[0].Close, bars[len(bars)-1].Close
	if first <= 0 {
		return 0, core.WrapError(core.ErrNoData, fmt.Errorf("non-positive close for %s", m.cfg.IndexSymbol))
	}
	return (last - first) / first * 100, nil
}
