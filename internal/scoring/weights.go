package scoring

import (
	"fmt"
	"math"

	"github.com/newthinker/compass/internal/core"
)

// weightTolerance is how far a weight vector may drift from 1.0.
const weightTolerance = 1e-9

// Weights is the factor weight vector used to blend normalized components.
type Weights struct {
	Technical float64 `mapstructure:"technical" json:"technical"`
	ML        float64 `mapstructure:"ml_probability" json:"ml_probability"`
	Momentum  float64 `mapstructure:"momentum" json:"momentum"`
	Regime    float64 `mapstructure:"regime" json:"regime"`
}

// DefaultWeights returns the canonical 40/30/20/10 blend.
func DefaultWeights() Weights {
	return Weights{
		Technical: 0.40,
		ML:        0.30,
		Momentum:  0.20,
		Regime:    0.10,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Technical + w.ML + w.Momentum + w.Regime
}

// Validate rejects negative weights and vectors that do not sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"technical":      w.Technical,
		"ml_probability": w.ML,
		"momentum":       w.Momentum,
		"regime":         w.Regime,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("weight %s must be a non-negative number, got %v", name, v))
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("weights must sum to 1, got %v", sum))
	}
	return nil
}

// Availability marks which asset-level factors have a usable value.
// The regime factor is always available.
type Availability struct {
	Technical bool
	ML        bool
	Momentum  bool
}

// Any reports whether at least one asset-level factor is available.
func (a Availability) Any() bool {
	return a.Technical || a.ML || a.Momentum
}

// All reports whether every asset-level factor is available.
func (a Availability) All() bool {
	return a.Technical && a.ML && a.Momentum
}

// Missing returns the canonical weight carried by unavailable factors.
func (w Weights) Missing(a Availability) float64 {
	var missing float64
	if !a.Technical {
		missing += w.Technical
	}
	if !a.ML {
		missing += w.ML
	}
	if !a.Momentum {
		missing += w.Momentum
	}
	return missing
}

// Renormalize redistributes the weight of missing factors proportionally over
// the available ones so the result still sums to 1. When no weight is missing
// w is returned unchanged.
func (w Weights) Renormalize(a Availability) Weights {
	if w.Missing(a) == 0 {
		return w
	}
	out := Weights{Regime: w.Regime}
	if a.Technical {
		out.Technical = w.Technical
	}
	if a.ML {
		out.ML = w.ML
	}
	if a.Momentum {
		out.Momentum = w.Momentum
	}

	total := out.Sum()
	if total <= 0 {
		// Every available factor carries zero canonical weight; split evenly.
		n := 1 + indicator(a.Technical) + indicator(a.ML) + indicator(a.Momentum)
		return Weights{
			Technical: indicator(a.Technical) / n,
			ML:        indicator(a.ML) / n,
			Momentum:  indicator(a.Momentum) / n,
			Regime:    1 / n,
		}
	}

	return Weights{
		Technical: out.Technical / total,
		ML:        out.ML / total,
		Momentum:  out.Momentum / total,
		Regime:    out.Regime / total,
	}
}

// Thresholds are the lower bounds of each signal tier on the composite score.
type Thresholds struct {
	StrongBuy float64 `mapstructure:"strong_buy" json:"strong_buy"`
	Buy       float64 `mapstructure:"buy" json:"buy"`
	Hold      float64 `mapstructure:"hold" json:"hold"`
	Reduce    float64 `mapstructure:"reduce" json:"reduce"`
}

// DefaultThresholds returns the 75/60/40/25 tier bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongBuy: 75,
		Buy:       60,
		Hold:      40,
		Reduce:    25,
	}
}

// Validate requires strictly descending bounds inside (0, 100].
func (t Thresholds) Validate() error {
	if !(t.StrongBuy <= 100 && t.StrongBuy > t.Buy && t.Buy > t.Hold && t.Hold > t.Reduce && t.Reduce > 0) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("signal thresholds must satisfy 100 >= strong_buy > buy > hold > reduce > 0, got %+v", t))
	}
	return nil
}

// Classify maps a composite score onto a tier, before any regime gating.
func (t Thresholds) Classify(score float64) core.Action {
	switch {
	case score >= t.StrongBuy:
		return core.ActionStrongBuy
	case score >= t.Buy:
		return core.ActionBuy
	case score >= t.Hold:
		return core.ActionHold
	case score >= t.Reduce:
		return core.ActionReduce
	default:
		return core.ActionSell
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
