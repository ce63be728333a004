// Package regime classifies overall market conditions from volatility and trend inputs.
package regime

import (
	"time"

	"github.com/newthinker/compass/internal/core"
)

// State is an immutable snapshot of the market regime.
// It is replaced, never mutated, once published to callers.
type State struct {
	Regime     core.Regime `json:"regime"`
	Score      float64     `json:"regime_score"`
	VIXLevel   *float64    `json:"vix_level"`
	TrendPct   *float64    `json:"trend_pct"`
	ComputedAt time.Time   `json:"computed_at"`
	Degraded   bool        `json:"degraded"`
	// Stale is set when a refresh failed and the previous state was served instead.
	Stale bool     `json:"stale,omitempty"`
	Notes []string `json:"notes,omitempty"`
}

// Contribution is the 0-100 value the regime adds to composite scoring.
func (s State) Contribution() float64 {
	switch s.Regime {
	case core.RegimeRiskOn:
		return 100
	case core.RegimeNeutral:
		return 50
	case core.RegimeRiskOff:
		return 0
	default:
		return 50
	}
}
