// Package risk derives regime-aware allocation limits and checks proposed
// portfolios against them. Checks are advisory: a breached limit is reported
// as a violation, never returned as an error.
package risk

import (
	"fmt"
	"math"

	"github.com/newthinker/compass/internal/core"
)

// LimitSet is one complete set of exposure limits, in percent of portfolio value.
type LimitSet struct {
	SingleStockMaxPct  float64 `mapstructure:"single_stock_max_pct" json:"single_stock_max_pct"`
	SingleCryptoMaxPct float64 `mapstructure:"single_crypto_max_pct" json:"single_crypto_max_pct"`
	TotalStocksMaxPct  float64 `mapstructure:"total_stocks_max_pct" json:"total_stocks_max_pct"`
	TotalCryptoMaxPct  float64 `mapstructure:"total_crypto_max_pct" json:"total_crypto_max_pct"`
	CashMinPct         float64 `mapstructure:"cash_min_pct" json:"cash_min_pct"`
}

// DefaultBaseLimits returns the canonical limits that apply in RISK_ON.
func DefaultBaseLimits() LimitSet {
	return LimitSet{
		SingleStockMaxPct:  10,
		SingleCryptoMaxPct: 5,
		TotalStocksMaxPct:  70,
		TotalCryptoMaxPct:  20,
		CashMinPct:         10,
	}
}

// SingleMaxPct returns the per-position cap for an asset class.
func (l LimitSet) SingleMaxPct(class core.AssetClass) float64 {
	if class == core.AssetCrypto {
		return l.SingleCryptoMaxPct
	}
	return l.SingleStockMaxPct
}

// TotalMaxPct returns the aggregate cap for an asset class.
func (l LimitSet) TotalMaxPct(class core.AssetClass) float64 {
	if class == core.AssetCrypto {
		return l.TotalCryptoMaxPct
	}
	return l.TotalStocksMaxPct
}

func (l LimitSet) validate(name string) error {
	for field, v := range map[string]float64{
		"single_stock_max_pct":  l.SingleStockMaxPct,
		"single_crypto_max_pct": l.SingleCryptoMaxPct,
		"total_stocks_max_pct":  l.TotalStocksMaxPct,
		"total_crypto_max_pct":  l.TotalCryptoMaxPct,
		"cash_min_pct":          l.CashMinPct,
	} {
		if math.IsNaN(v) || v <= 0 || v > 100 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s.%s must be in (0, 100], got %v", name, field, v))
		}
	}
	if l.SingleStockMaxPct > l.TotalStocksMaxPct || l.SingleCryptoMaxPct > l.TotalCryptoMaxPct {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("%s: single position limits cannot exceed class totals", name))
	}
	return nil
}

// tighterOrEqual reports whether every cap in l is no looser than in other
// and the cash floor is no lower.
func (l LimitSet) tighterOrEqual(other LimitSet) bool {
	return l.SingleStockMaxPct <= other.SingleStockMaxPct &&
		l.SingleCryptoMaxPct <= other.SingleCryptoMaxPct &&
		l.TotalStocksMaxPct <= other.TotalStocksMaxPct &&
		l.TotalCryptoMaxPct <= other.TotalCryptoMaxPct &&
		l.CashMinPct >= other.CashMinPct
}

// AllocationLimits is the limit set in force for one regime.
// Adjusted is nil when the base limits apply unchanged.
type AllocationLimits struct {
	Regime   core.Regime `json:"regime"`
	Base     LimitSet    `json:"base"`
	Adjusted *LimitSet   `json:"adjusted"`
}

// Effective returns the adjusted limits when present, else the base limits.
func (a AllocationLimits) Effective() LimitSet {
	if a.Adjusted != nil {
		return *a.Adjusted
	}
	return a.Base
}
