package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
)

func TestMarketData_ImplementsProvider(t *testing.T) {
	var _ decision.MarketDataProvider = (*MarketData)(nil)
}

func TestMarketData_VIX(t *testing.T) {
	stub := &stubCollector{quote: &core.Quote{Symbol: "^VIX", Price: 18.5}}
	m := NewMarketData(stub, MarketConfig{})

	vix, err := m.VIX(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 18.5, vix)
	assert.Equal(t, "^VIX", stub.symbol)
}

func TestMarketData_TrendPct(t *testing.T) {
	stub := &stubCollector{bars: barsOf(100, 97, 104, 110)}
	m := NewMarketData(stub, MarketConfig{IndexSymbol: "SPY", LookbackDays: 30})
	now := time.Date(2026, 3, 31, 21, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	trend, err := m.TrendPct(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, trend, 1e-9)
	assert.Equal(t, "SPY", stub.symbol)
	assert.Equal(t, now.AddDate(0, 0, -30), stub.start)
	assert.Equal(t, now, stub.end)
}

func TestMarketData_TrendPct_NotEnoughBars(t *testing.T) {
	m := NewMarketData(&stubCollector{bars: barsOf(100)}, MarketConfig{})

	_, err := m.TrendPct(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestMarketData_PropagatesErrors(t *testing.T) {
	m := NewMarketData(&stubCollector{err: core.ErrProviderFailed}, MarketConfig{})

	_, err := m.VIX(context.Background())
	assert.True(t, errors.Is(err, core.ErrProviderFailed))
	_, err = m.TrendPct(context.Background())
	assert.True(t, errors.Is(err, core.ErrProviderFailed))
}
