package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/newthinker/compass/internal/core"
)

// Rule names reported in violations.
const (
	RuleSingleStockMax  = "single_stock_max"
	RuleSingleCryptoMax = "single_crypto_max"
	RuleTotalStocksMax  = "total_stocks_max"
	RuleTotalCryptoMax  = "total_crypto_max"
	RuleCashMin         = "cash_min"
)

// Position is one holding as a percentage of total portfolio value.
type Position struct {
	Ticker     string          `json:"ticker" validate:"required"`
	AssetClass core.AssetClass `json:"asset_class" validate:"required"`
	Pct        float64         `json:"pct" validate:"gte=0"`
}

// Violation is one breached limit. Ticker is empty for portfolio-level rules.
type Violation struct {
	Rule     string  `json:"rule"`
	Ticker   string  `json:"ticker,omitempty"`
	Limit    float64 `json:"limit"`
	Observed float64 `json:"observed"`
}

func (v Violation) String() string {
	if v.Ticker != "" {
		return fmt.Sprintf("%s exceeded: %s %g%% > %g%%", v.Rule, v.Ticker, v.Observed, v.Limit)
	}
	if v.Rule == RuleCashMin {
		return fmt.Sprintf("%s not met: %g%% < %g%%", v.Rule, v.Observed, v.Limit)
	}
	return fmt.Sprintf("%s exceeded: %g%% > %g%%", v.Rule, v.Observed, v.Limit)
}

// Compliance is the outcome of validating a snapshot.
type Compliance struct {
	WithinLimits bool        `json:"within_limits"`
	Violations   []Violation `json:"violations"`
}

// Snapshot is a proposed or current set of positions. The remainder of the
// portfolio is implicit cash. Compliance is nil until validated.
type Snapshot struct {
	Positions     []Position                  `json:"positions"`
	TotalsByClass map[core.AssetClass]float64 `json:"totals_by_class"`
	CashPct       float64                     `json:"cash_pct"`
	Compliance    *Compliance                 `json:"compliance,omitempty"`
}

// NewSnapshot normalizes positions into a snapshot sorted by ticker.
// Tickers are upper-cased and duplicates are summed.
func NewSnapshot(positions []Position) (Snapshot, error) {
	merged := make(map[string]Position, len(positions))
	for _, p := range positions {
		ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))
		if ticker == "" {
			return Snapshot{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("position ticker is empty"))
		}
		if math.IsNaN(p.Pct) || math.IsInf(p.Pct, 0) || p.Pct < 0 {
			return Snapshot{}, core.WrapError(core.ErrInvalidInput,
				fmt.Errorf("position %s: pct must be a non-negative number, got %v", ticker, p.Pct))
		}
		class, err := core.ParseAssetClass(string(p.AssetClass))
		if err != nil {
			return Snapshot{}, err
		}

		if prev, ok := merged[ticker]; ok {
			if prev.AssetClass != class {
				return Snapshot{}, core.WrapError(core.ErrInvalidInput,
					fmt.Errorf("position %s listed as both %s and %s", ticker, prev.AssetClass, class))
			}
			prev.Pct += p.Pct
			merged[ticker] = prev
			continue
		}
		merged[ticker] = Position{Ticker: ticker, AssetClass: class, Pct: p.Pct}
	}

	snap := Snapshot{
		Positions:     make([]Position, 0, len(merged)),
		TotalsByClass: make(map[core.AssetClass]float64, len(core.AllAssetClasses())),
	}
	for _, class := range core.AllAssetClasses() {
		snap.TotalsByClass[class] = 0
	}

	for _, p := range merged {
		snap.Positions = append(snap.Positions, p)
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return snap.Positions[i].Ticker < snap.Positions[j].Ticker
	})

	// Sum in ticker order so identical inputs give bit-identical totals.
	var invested float64
	for _, p := range snap.Positions {
		snap.TotalsByClass[p.AssetClass] += p.Pct
		invested += p.Pct
	}
	snap.CashPct = 100 - invested
	return snap, nil
}
