package provider

import (
	"context"
	"fmt"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
)

// StaticMarket serves fixed regime inputs. Nil values are reported as
// unavailable.
type StaticMarket struct {
	VIXLevel *float64
	Trend    *float64
}

func (s StaticMarket) VIX(context.Context) (float64, error) {
	return value(s.VIXLevel, "vix")
}

func (s StaticMarket) TrendPct(context.Context) (float64, error) {
	return value(s.Trend, "trend")
}

// StaticTechnical returns the same technicals for every asset.
type StaticTechnical decision.Technicals

func (s StaticTechnical) Technicals(context.Context, string, core.AssetClass) (decision.Technicals, error) {
	if s.Score == nil && s.Momentum == nil {
		return decision.Technicals{}, core.WrapError(core.ErrNoData, fmt.Errorf("no static technicals"))
	}
	return decision.Technicals(s), nil
}

// StaticProbability returns the same model probability for every asset.
type StaticProbability float64

func (s StaticProbability) Probability(context.Context, string, core.AssetClass) (float64, error) {
	return float64(s), nil
}

// Overlay serves market inputs from Override where set and from Base
// otherwise.
type Overlay struct {
	Base     decision.MarketDataProvider
	Override StaticMarket
}

func (o Overlay) VIX(ctx context.Context) (float64, error) {
	if o.Override.VIXLevel != nil {
		return *o.Override.VIXLevel, nil
	}
	return o.Base.VIX(ctx)
}

func (o Overlay) TrendPct(ctx context.Context) (float64, error) {
	if o.Override.Trend != nil {
		return *o.Override.Trend, nil
	}
	return o.Base.TrendPct(ctx)
}

func value(v *float64, name string) (float64, error) {
	if v == nil {
		return 0, core.WrapError(core.ErrNoData, fmt.Errorf("%s not set", name))
	}
	return *v, nil
}
