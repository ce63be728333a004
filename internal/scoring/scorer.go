package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/regime"
	"golang.org/x/sync/errgroup"
)

// neutralScore is reported when no asset-level input is available.
const neutralScore = 50

const neutralNote = "no asset inputs available: composite is the fixed neutral fallback of 50, weights not applied"

// Config holds scorer configuration.
type Config struct {
	Weights    Weights    `mapstructure:"weights"`
	Thresholds Thresholds `mapstructure:"thresholds"`
}

// DefaultConfig returns canonical weights and tier thresholds.
func DefaultConfig() Config {
	return Config{
		Weights:    DefaultWeights(),
		Thresholds: DefaultThresholds(),
	}
}

// Scorer computes composite signals. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer validates configuration and creates a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score blends the asset's inputs with the regime into a signal.
func (s *Scorer) Score(in AssetInput, st regime.State) AssetSignal {
	out := AssetSignal{
		Ticker:             in.Ticker,
		AssetClass:         in.AssetClass,
		Regime:             st.Regime,
		RegimeContribution: st.Contribution(),
	}

	techRaw, techNote := sanitize(FactorTechnical, in.TechnicalScore, 0, 100)
	mlRaw, mlNote := sanitize(FactorML, in.MLProbability, 0, 1)
	momRaw, momNote := sanitize(FactorMomentum, in.MomentumScore, -100, 100)
	for _, n := range []string{techNote, mlNote, momNote} {
		if n != "" {
			out.Notes = append(out.Notes, n)
		}
	}
	out.TechnicalScore = techRaw
	out.MLProbability = mlRaw
	out.MomentumScore = momRaw

	avail := Availability{Technical: techRaw != nil, ML: mlRaw != nil, Momentum: momRaw != nil}
	out.Degraded = !avail.All()

	if !avail.Any() {
		return s.neutral(out)
	}

	w := s.cfg.Weights.Renormalize(avail)
	out.WeightsUsed = w

	regimeRaw := out.RegimeContribution
	factors := []Factor{
		factor(FactorTechnical, techRaw, w.Technical, func(v float64) float64 { return v }),
		factor(FactorML, mlRaw, w.ML, func(v float64) float64 { return v * 100 }),
		factor(FactorMomentum, momRaw, w.Momentum, func(v float64) float64 { return (v + 100) / 2 }),
		factor(FactorRegime, &regimeRaw, w.Regime, func(v float64) float64 { return v }),
	}

	var sum float64
	for _, f := range factors {
		sum += f.Contribution
	}
	out.Explanation = factors
	out.CompositeScore = round2(clamp(sum, 0, 100))

	if s.cfg.Weights.Missing(avail) > 0 {
		out.Notes = append(out.Notes, "weights renormalized over available factors")
	}

	tier := s.cfg.Thresholds.Classify(out.CompositeScore)
	out.UngatedSignal = tier
	out.Signal = tier

	// Regime gating runs after weighting: no buy tiers while RISK_OFF.
	if st.Regime == core.RegimeRiskOff && tier.IsBuy() {
		out.Signal = core.ActionHold
		out.Gated = true
		out.Notes = append(out.Notes, fmt.Sprintf("%s capped at %s by RISK_OFF regime", tier, core.ActionHold))
	}

	return out
}

// ScoreBatch scores inputs in parallel with at most concurrency workers.
// Result order is unspecified; match results to inputs by ticker.
func (s *Scorer) ScoreBatch(ctx context.Context, inputs []AssetInput, st regime.State, concurrency int) ([]AssetSignal, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	out := make([]AssetSignal, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = s.Score(inputs[i], st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// neutral reports the fixed fallback. The canonical weights are listed on
// every factor but none is applied, so every contribution is zero.
func (s *Scorer) neutral(out AssetSignal) AssetSignal {
	w := s.cfg.Weights
	out.WeightsUsed = w
	out.CompositeScore = neutralScore
	out.Signal = core.ActionHold
	out.UngatedSignal = core.ActionHold
	out.Degraded = true
	regimeRaw := out.RegimeContribution
	out.Explanation = []Factor{
		{Name: FactorTechnical, Weight: w.Technical},
		{Name: FactorML, Weight: w.ML},
		{Name: FactorMomentum, Weight: w.Momentum},
		{Name: FactorRegime, Weight: w.Regime, RawValue: &regimeRaw, Normalized: regimeRaw, Available: true},
	}
	out.Notes = append(out.Notes, neutralNote)
	return out
}

// factor builds an explanation line; scale maps the raw value onto 0-100.
func factor(name string, raw *float64, weight float64, scale func(float64) float64) Factor {
	f := Factor{Name: name, Weight: weight}
	if raw != nil {
		f.Available = true
		f.RawValue = raw
		f.Normalized = scale(*raw)
		f.Contribution = f.Normalized * weight
	}
	return f
}

// sanitize drops non-finite inputs and clamps the rest into [lo, hi].
func sanitize(name string, v *float64, lo, hi float64) (*float64, string) {
	if v == nil {
		return nil, ""
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil, name + " is not a finite number, treated as missing"
	}
	x := *v
	if x < lo || x > hi {
		return core.Float(clamp(x, lo, hi)), fmt.Sprintf("%s %.4g clamped to [%g, %g]", name, x, lo, hi)
	}
	return core.Float(x), ""
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
