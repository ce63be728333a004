package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/risk"
	"github.com/newthinker/compass/internal/storage/archive"
)

func TestHoldings_ImplementsProvider(t *testing.T) {
	var _ decision.HoldingsProvider = (*Holdings)(nil)
}

func newHoldings(t *testing.T) (*Holdings, archive.Storage) {
	t.Helper()
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return NewHoldings(store), store
}

func TestHoldings_SaveAndLoad(t *testing.T) {
	h, _ := newHoldings(t)
	ctx := context.Background()
	positions := []risk.Position{
		{Ticker: "AAPL", AssetClass: core.AssetEquity, Pct: 12},
		{Ticker: "BTC", AssetClass: core.AssetCrypto, Pct: 4},
	}

	require.NoError(t, h.Save(ctx, "main", positions))
	got, err := h.Holdings(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, positions, got)
}

func TestHoldings_NormalizesAssetClass(t *testing.T) {
	h, store := newHoldings(t)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "portfolios/alt.json",
		[]byte(`[{"ticker":"ETH","asset_class":"crypto","pct":3},{"ticker":"MSFT","asset_class":"stock","pct":5}]`)))

	got, err := h.Holdings(ctx, "alt")
	require.NoError(t, err)
	assert.Equal(t, core.AssetCrypto, got[0].AssetClass)
	assert.Equal(t, core.AssetEquity, got[1].AssetClass)
}

func TestHoldings_Errors(t *testing.T) {
	h, store := newHoldings(t)
	ctx := context.Background()

	_, err := h.Holdings(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrPortfolioNotFound))

	_, err = h.Holdings(ctx, "../etc/passwd")
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	require.NoError(t, store.Write(ctx, "portfolios/bad.json", []byte(`{not json`)))
	_, err = h.Holdings(ctx, "bad")
	assert.True(t, errors.Is(err, core.ErrProviderFailed))

	require.NoError(t, store.Write(ctx, "portfolios/bond.json", []byte(`[{"ticker":"TLT","asset_class":"BOND","pct":5}]`)))
	_, err = h.Holdings(ctx, "bond")
	assert.True(t, errors.Is(err, core.ErrProviderFailed))
}

func TestHoldings_IDs(t *testing.T) {
	h, _ := newHoldings(t)
	ctx := context.Background()
	require.NoError(t, h.Save(ctx, "growth", nil))
	require.NoError(t, h.Save(ctx, "core", nil))

	ids, err := h.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "growth"}, ids)
}
