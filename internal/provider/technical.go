package provider

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/indicator"
)

const (
	historyDays = 120

	rsiPeriod  = 14
	fastPeriod = 20
	slowPeriod = 50
	rocPeriod  = 20

	// momentumScale maps a 20% move onto the full momentum range.
	momentumScale = 5.0
)

// Technical implements decision.TechnicalIndicatorProvider from daily
// closes. Equities and crypto assets are read from separate collectors.
type Technical struct {
	equities collector.Collector
	crypto   collector.Collector
	now      func() time.Time
}

// NewTechnical creates a technical provider. Either collector may be nil,
// in which case that asset class is unavailable.
func NewTechnical(equities, crypto collector.Collector) *Technical {
	return &Technical{equities: equities, crypto: crypto, now: time.Now}
}

// Technicals fetches historyDays of daily bars for ticker and derives its
// technical and momentum scores. Either score is nil when history is too
// short for it; NO_DATA is returned only when both are.
func (t *Technical) Technicals(ctx context.Context, ticker string, class core.AssetClass) (decision.Technicals, error) {
	source := t.equities
	if class == core.AssetCrypto {
		source = t.crypto
	}
	if source == nil {
		return decision.Technicals{}, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("no collector for %s assets", class))
	}

	end := t.now()
	bars, err := source.FetchHistory(ctx, ticker, end.AddDate(0, 0, -historyDays), end, "1d")
	if err != nil {
		return decision.Technicals{}, err
	}

	closes := core.Closes(bars)
	out := decision.Technicals{
		Score:    TechnicalScore(closes),
		Momentum: MomentumScore(closes),
	}
	if out.Score == nil && out.Momentum == nil {
		return out, core.WrapError(core.ErrNoData,
			fmt.Errorf("%d closes for %s, need at least %d", len(closes), ticker, rocPeriod+1))
	}
	return out, nil
}

// TechnicalScore blends RSI(14), the distance of price above SMA(50) and
// the SMA(20)/SMA(50) alignment into a 0..100 score. It returns nil when
// there are fewer than 50 closes.
func TechnicalScore(closes []float64) *float64 {
	if len(closes) < slowPeriod {
		return nil
	}
	rsi, ok := indicator.RSI(closes, rsiPeriod)
	if !ok {
		return nil
	}
	slow, _ := indicator.Last(indicator.SMA(closes, slowPeriod))
	fast, _ := indicator.Last(indicator.SMA(closes, fastPeriod))
	price := closes[len(closes)-1]
	if slow <= 0 {
		return nil
	}

	// 10% above the slow average scores 100, 10% below scores 0.
	position := clamp(50+5*(price-slow)/slow*100, 0, 100)

	alignment := 50.0
	switch {
	case fast > slow:
		alignment = 100
	case fast < slow:
		alignment = 0
	}

	score := round2(0.4*rsi + 0.3*position + 0.3*alignment)
	return &score
}

// MomentumScore is the 20-day rate of change scaled into -100..100. It
// returns nil when there are 20 closes or fewer.
func MomentumScore(closes []float64) *float64 {
	roc, ok := indicator.ROC(closes, rocPeriod)
	if !ok {
		return nil
	}
	m := round2(clamp(roc*momentumScale, -100, 100))
	return &m
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
