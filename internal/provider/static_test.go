package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
)

func TestStaticProviders(t *testing.T) {
	var _ decision.MarketDataProvider = StaticMarket{}
	var _ decision.TechnicalIndicatorProvider = StaticTechnical{}
	var _ decision.MLPredictionProvider = StaticProbability(0)
	ctx := context.Background()

	m := StaticMarket{VIXLevel: core.Float(25)}
	vix, err := m.VIX(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 25.0, vix)
	_, err = m.TrendPct(ctx)
	assert.True(t, errors.Is(err, core.ErrNoData))

	_, err = StaticTechnical{}.Technicals(ctx, "AAPL", core.AssetEquity)
	assert.True(t, errors.Is(err, core.ErrNoData))

	p, _ := StaticProbability(0.7).Probability(ctx, "AAPL", core.AssetEquity)
	assert.Equal(t, 0.7, p)
}

func TestOverlay(t *testing.T) {
	base := StaticMarket{VIXLevel: core.Float(35), Trend: core.Float(-8)}
	o := Overlay{Base: base, Override: StaticMarket{VIXLevel: core.Float(15)}}
	ctx := context.Background()

	vix, _ := o.VIX(ctx)
	trend, _ := o.TrendPct(ctx)
	assert.Equal(t, 15.0, vix)
	assert.Equal(t, -8.0, trend)
}
