// Package scoring blends technical, model, momentum and regime inputs into a
// single explainable composite score and signal tier per asset.
package scoring

import "github.com/newthinker/compass/internal/core"

// Factor names in explanation order.
const (
	FactorTechnical = "technical"
	FactorML        = "ml_probability"
	FactorMomentum  = "momentum"
	FactorRegime    = "regime"
)

// AssetInput holds the already-fetched inputs for one asset.
// Nil fields are missing inputs.
type AssetInput struct {
	Ticker         string          `json:"ticker"`
	AssetClass     core.AssetClass `json:"asset_class"`
	TechnicalScore *float64        `json:"technical_score"` // 0..100
	MLProbability  *float64        `json:"ml_probability"`  // 0..1
	MomentumScore  *float64        `json:"momentum_score"`  // -100..100
}

// Factor is one line of a signal's explanation.
type Factor struct {
	Name         string   `json:"factor"`
	RawValue     *float64 `json:"raw_value"`
	Normalized   float64  `json:"normalized"`
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"contribution"`
	Available    bool     `json:"available"`
}

// AssetSignal is the scored, explained result for one asset.
type AssetSignal struct {
	Ticker     string          `json:"ticker"`
	AssetClass core.AssetClass `json:"asset_class"`

	TechnicalScore     *float64 `json:"technical_score"`
	MLProbability      *float64 `json:"ml_probability"`
	MomentumScore      *float64 `json:"momentum_score"`
	RegimeContribution float64  `json:"regime_contribution"`

	Regime         core.Regime `json:"regime"`
	CompositeScore float64     `json:"composite_score"`
	Signal         core.Action `json:"signal"`
	// UngatedSignal is the tier the score mapped to before regime gating.
	UngatedSignal core.Action `json:"ungated_signal"`
	Gated         bool        `json:"gated"`

	WeightsUsed Weights  `json:"weights_used"`
	Explanation []Factor `json:"explanation"`
	Degraded    bool     `json:"degraded"`
	Notes       []string `json:"notes,omitempty"`
}
