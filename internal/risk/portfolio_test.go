package risk_test

import (
	"math"
	"testing"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	snap, err := risk.NewSnapshot([]risk.Position{
		{Ticker: "msft", AssetClass: core.AssetEquity, Pct: 8},
		{Ticker: "BTC", AssetClass: "crypto", Pct: 4},
		{Ticker: "AAPL", AssetClass: core.AssetEquity, Pct: 6},
		{Ticker: " aapl ", AssetClass: core.AssetEquity, Pct: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []risk.Position{
		{Ticker: "AAPL", AssetClass: core.AssetEquity, Pct: 9},
		{Ticker: "BTC", AssetClass: core.AssetCrypto, Pct: 4},
		{Ticker: "MSFT", AssetClass: core.AssetEquity, Pct: 8},
	}, snap.Positions)
	assert.Equal(t, 17.0, snap.TotalsByClass[core.AssetEquity])
	assert.Equal(t, 4.0, snap.TotalsByClass[core.AssetCrypto])
	assert.Equal(t, 79.0, snap.CashPct)
	assert.Nil(t, snap.Compliance)
}

func TestNewSnapshot_SumsInTickerOrder(t *testing.T) {
	// Float addition is not associative; these values sum differently
	// depending on order.
	positions := []risk.Position{
		{Ticker: "E", AssetClass: core.AssetEquity, Pct: 0.7},
		{Ticker: "A", AssetClass: core.AssetEquity, Pct: 0.1},
		{Ticker: "D", AssetClass: core.AssetEquity, Pct: 69.1},
		{Ticker: "B", AssetClass: core.AssetEquity, Pct: 0.2},
		{Ticker: "C", AssetClass: core.AssetEquity, Pct: 0.3},
		{Ticker: "F", AssetClass: core.AssetEquity, Pct: 0.6},
	}

	var invested float64
	for _, pct := range []float64{0.1, 0.2, 0.3, 69.1, 0.7, 0.6} {
		invested += pct
	}

	for i := 0; i < 50; i++ {
		snap, err := risk.NewSnapshot(positions)
		require.NoError(t, err)
		require.Equal(t, invested, snap.TotalsByClass[core.AssetEquity])
		require.Equal(t, 100-invested, snap.CashPct)
	}
}

func TestNewSnapshot_Empty(t *testing.T) {
	snap, err := risk.NewSnapshot(nil)
	require.NoError(t, err)

	assert.Empty(t, snap.Positions)
	assert.Equal(t, 100.0, snap.CashPct)
	assert.Equal(t, 0.0, snap.TotalsByClass[core.AssetEquity])
}

func TestNewSnapshot_InvalidPositions(t *testing.T) {
	tests := []struct {
		name string
		pos  risk.Position
	}{
		{"empty ticker", risk.Position{Ticker: "  ", AssetClass: core.AssetEquity, Pct: 1}},
		{"negative pct", risk.Position{Ticker: "AAPL", AssetClass: core.AssetEquity, Pct: -1}},
		{"nan pct", risk.Position{Ticker: "AAPL", AssetClass: core.AssetEquity, Pct: math.NaN()}},
		{"inf pct", risk.Position{Ticker: "AAPL", AssetClass: core.AssetEquity, Pct: math.Inf(1)}},
		{"unknown class", risk.Position{Ticker: "GLD", AssetClass: "COMMODITY", Pct: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := risk.NewSnapshot([]risk.Position{tt.pos})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestNewSnapshot_ConflictingClass(t *testing.T) {
	_, err := risk.NewSnapshot([]risk.Position{
		{Ticker: "COIN", AssetClass: core.AssetEquity, Pct: 2},
		{Ticker: "COIN", AssetClass: core.AssetCrypto, Pct: 2},
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestNewSnapshot_OverInvestedCash(t *testing.T) {
	snap, err := risk.NewSnapshot([]risk.Position{
		{Ticker: "SPY", AssetClass: core.AssetEquity, Pct: 80},
		{Ticker: "QQQ", AssetClass: core.AssetEquity, Pct: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, -10.0, snap.CashPct)
}
