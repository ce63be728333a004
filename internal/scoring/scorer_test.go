package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/regime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultConfig())
	require.NoError(t, err)
	return s
}

func state(r core.Regime) regime.State {
	return regime.State{Regime: r}
}

func sampleInput() AssetInput {
	return AssetInput{
		Ticker:         "AAPL",
		AssetClass:     core.AssetEquity,
		TechnicalScore: core.Float(80),
		MLProbability:  core.Float(0.75),
		MomentumScore:  core.Float(40),
	}
}

func TestScorer_Score_AllInputsRiskOn(t *testing.T) {
	s := newTestScorer(t)

	sig := s.Score(sampleInput(), state(core.RegimeRiskOn))

	// (80, 75, 70, 100) x (0.4, 0.3, 0.2, 0.1) = 32 + 22.5 + 14 + 10
	assert.Equal(t, 78.5, sig.CompositeScore)
	assert.Equal(t, core.ActionStrongBuy, sig.Signal)
	assert.False(t, sig.Gated)
	assert.False(t, sig.Degraded)
	assert.Equal(t, DefaultWeights(), sig.WeightsUsed)
	assert.Equal(t, 100.0, sig.RegimeContribution)
	assert.Empty(t, sig.Notes)

	require.Len(t, sig.Explanation, 4)
	names := []string{FactorTechnical, FactorML, FactorMomentum, FactorRegime}
	contributions := []float64{32, 22.5, 14, 10}
	normalized := []float64{80, 75, 70, 100}
	for i, f := range sig.Explanation {
		assert.Equal(t, names[i], f.Name)
		assert.True(t, f.Available)
		assert.InDelta(t, normalized[i], f.Normalized, 1e-9)
		assert.InDelta(t, contributions[i], f.Contribution, 1e-9)
	}
}

func TestScorer_Score_RiskOffGatesBuyTiers(t *testing.T) {
	s := newTestScorer(t)

	sig := s.Score(sampleInput(), state(core.RegimeRiskOff))

	// Regime contributes 0 under RISK_OFF: 32 + 22.5 + 14 + 0.
	assert.Equal(t, 68.5, sig.CompositeScore)
	assert.Equal(t, core.ActionBuy, sig.UngatedSignal)
	assert.Equal(t, core.ActionHold, sig.Signal)
	assert.True(t, sig.Gated)
	assert.NotEmpty(t, sig.Notes)
}

func TestScorer_Score_RiskOffGatesStrongBuy(t *testing.T) {
	s := newTestScorer(t)

	in := AssetInput{
		Ticker:         "NVDA",
		AssetClass:     core.AssetEquity,
		TechnicalScore: core.Float(100),
		MLProbability:  core.Float(1),
		MomentumScore:  core.Float(100),
	}
	sig := s.Score(in, state(core.RegimeRiskOff))

	assert.Equal(t, 90.0, sig.CompositeScore)
	assert.Equal(t, core.ActionStrongBuy, sig.UngatedSignal)
	assert.Equal(t, core.ActionHold, sig.Signal)
}

func TestScorer_Score_RiskOffLeavesSellTiersAlone(t *testing.T) {
	s := newTestScorer(t)

	in := AssetInput{
		Ticker:         "XYZ",
		AssetClass:     core.AssetEquity,
		TechnicalScore: core.Float(10),
		MLProbability:  core.Float(0.1),
		MomentumScore:  core.Float(-80),
	}
	sig := s.Score(in, state(core.RegimeRiskOff))

	assert.Equal(t, core.ActionSell, sig.Signal)
	assert.False(t, sig.Gated)
}

func TestScorer_Score_MissingMLRenormalizes(t *testing.T) {
	s := newTestScorer(t)

	in := sampleInput()
	in.MLProbability = nil
	sig := s.Score(in, state(core.RegimeRiskOn))

	assert.True(t, sig.Degraded)
	assert.InDelta(t, 0.4/0.7, sig.WeightsUsed.Technical, 1e-12)
	assert.Equal(t, 0.0, sig.WeightsUsed.ML)
	assert.InDelta(t, 0.2/0.7, sig.WeightsUsed.Momentum, 1e-12)
	assert.InDelta(t, 0.1/0.7, sig.WeightsUsed.Regime, 1e-12)
	assert.InDelta(t, 1.0, sig.WeightsUsed.Sum(), 1e-9)

	// 80*4/7 + 70*2/7 + 100*1/7 = 560/7 = 80
	assert.Equal(t, 80.0, sig.CompositeScore)
	assert.Equal(t, core.ActionStrongBuy, sig.Signal)

	ml := sig.Explanation[1]
	assert.Equal(t, FactorML, ml.Name)
	assert.False(t, ml.Available)
	assert.Nil(t, ml.RawValue)
	assert.Equal(t, 0.0, ml.Contribution)
	assert.Contains(t, sig.Notes, "weights renormalized over available factors")
}

func TestScorer_Score_AllInputsMissing(t *testing.T) {
	s := newTestScorer(t)

	for _, r := range core.AllRegimes() {
		t.Run(string(r), func(t *testing.T) {
			sig := s.Score(AssetInput{Ticker: "ETH", AssetClass: core.AssetCrypto}, state(r))

			assert.Equal(t, 50.0, sig.CompositeScore)
			assert.Equal(t, core.ActionHold, sig.Signal)
			assert.True(t, sig.Degraded)
			assert.Equal(t, DefaultWeights(), sig.WeightsUsed)
			assert.Contains(t, sig.Notes, neutralNote)

			// The explanation lists the same weights and applies none of them.
			require.Len(t, sig.Explanation, 4)
			w := sig.WeightsUsed
			want := []float64{w.Technical, w.ML, w.Momentum, w.Regime}
			for i, f := range sig.Explanation {
				assert.Equal(t, want[i], f.Weight, f.Name)
				assert.Zero(t, f.Contribution, f.Name)
			}
		})
	}
}

func TestScorer_Score_NonFiniteInputIsMissing(t *testing.T) {
	s := newTestScorer(t)

	in := sampleInput()
	in.MLProbability = core.Float(math.NaN())
	sig := s.Score(in, state(core.RegimeRiskOn))

	assert.True(t, sig.Degraded)
	assert.Nil(t, sig.MLProbability)
	assert.Equal(t, 80.0, sig.CompositeScore)
}

func TestScorer_Score_OutOfRangeInputsClamped(t *testing.T) {
	s := newTestScorer(t)

	in := AssetInput{
		Ticker:         "TSLA",
		AssetClass:     core.AssetEquity,
		TechnicalScore: core.Float(140),
		MLProbability:  core.Float(1.7),
		MomentumScore:  core.Float(-250),
	}
	sig := s.Score(in, state(core.RegimeNeutral))

	require.NotNil(t, sig.TechnicalScore)
	assert.Equal(t, 100.0, *sig.TechnicalScore)
	assert.Equal(t, 1.0, *sig.MLProbability)
	assert.Equal(t, -100.0, *sig.MomentumScore)
	assert.False(t, sig.Degraded)
	// 100*.4 + 100*.3 + 0*.2 + 50*.1
	assert.Equal(t, 75.0, sig.CompositeScore)
	assert.Len(t, sig.Notes, 3)
}

func TestScorer_Thresholds(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  core.Action
	}{
		{100, core.ActionStrongBuy},
		{75, core.ActionStrongBuy},
		{74.99, core.ActionBuy},
		{60, core.ActionBuy},
		{59.99, core.ActionHold},
		{40, core.ActionHold},
		{39.99, core.ActionReduce},
		{25, core.ActionReduce},
		{24.99, core.ActionSell},
		{0, core.ActionSell},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Classify(tt.score), "score %v", tt.score)
	}
}

// allInputCombos yields every subset of asset inputs over a grid of values.
func allInputCombos() []AssetInput {
	techs := []float64{0, 12.5, 50, 88, 100}
	mls := []float64{0, 0.33, 0.5, 0.9, 1}
	moms := []float64{-100, -40, 0, 55, 100}

	var out []AssetInput
	for mask := 0; mask < 8; mask++ {
		for _, tv := range techs {
			for _, mv := range mls {
				for _, mo := range moms {
					in := AssetInput{Ticker: "T", AssetClass: core.AssetEquity}
					if mask&1 != 0 {
						in.TechnicalScore = core.Float(tv)
					}
					if mask&2 != 0 {
						in.MLProbability = core.Float(mv)
					}
					if mask&4 != 0 {
						in.MomentumScore = core.Float(mo)
					}
					out = append(out, in)
				}
			}
		}
	}
	return out
}

func TestScorer_Properties(t *testing.T) {
	s := newTestScorer(t)
	inputs := allInputCombos()

	for _, r := range core.AllRegimes() {
		st := state(r)
		for _, in := range inputs {
			sig := s.Score(in, st)

			if math.Abs(sig.WeightsUsed.Sum()-1) > 1e-9 {
				t.Fatalf("weights sum %v != 1 for %+v", sig.WeightsUsed.Sum(), sig.WeightsUsed)
			}
			if sig.CompositeScore < 0 || sig.CompositeScore > 100 {
				t.Fatalf("composite %v out of bounds", sig.CompositeScore)
			}
			if r == core.RegimeRiskOff && sig.Signal.IsBuy() {
				t.Fatalf("buy signal %s under RISK_OFF", sig.Signal)
			}
			if len(sig.Explanation) != 4 {
				t.Fatalf("expected 4 explanation entries, got %d", len(sig.Explanation))
			}
		}
	}
}

func TestWeights_RenormalizeEverySubset(t *testing.T) {
	weights := []Weights{
		DefaultWeights(),
		{Technical: 0.25, ML: 0.25, Momentum: 0.25, Regime: 0.25},
		{Technical: 0.7, ML: 0, Momentum: 0.3, Regime: 0},
		{Technical: 0, ML: 0, Momentum: 0, Regime: 1},
	}
	for _, w := range weights {
		require.NoError(t, w.Validate())
		for mask := 0; mask < 8; mask++ {
			a := Availability{Technical: mask&1 != 0, ML: mask&2 != 0, Momentum: mask&4 != 0}
			got := w.Renormalize(a)
			assert.InDelta(t, 1.0, got.Sum(), 1e-9, "weights %+v availability %+v", w, a)
			if !a.Technical {
				assert.Zero(t, got.Technical)
			}
			if !a.ML {
				assert.Zero(t, got.ML)
			}
			if !a.Momentum {
				assert.Zero(t, got.Momentum)
			}
		}
	}
}

func TestWeights_RenormalizeAllAvailableIsIdentity(t *testing.T) {
	all := Availability{Technical: true, ML: true, Momentum: true}
	for _, w := range []Weights{
		DefaultWeights(),
		{Technical: 0.1, ML: 0.2, Momentum: 0.3, Regime: 0.4},
		{Technical: 0.35, ML: 0.35, Momentum: 0.2, Regime: 0.1},
	} {
		// Canonical weights summing to 1 only within float error stay as configured.
		assert.Equal(t, w, w.Renormalize(all))
	}
}

func TestWeights_RenormalizeZeroWeightMissing(t *testing.T) {
	w := Weights{Technical: 0.7, ML: 0, Momentum: 0.2, Regime: 0.1}
	a := Availability{Technical: true, Momentum: true}

	assert.Zero(t, w.Missing(a))
	assert.Equal(t, w, w.Renormalize(a))
}

func TestScorer_Score_AllInputsNoRenormalizeNote(t *testing.T) {
	s := newTestScorer(t)

	for _, r := range core.AllRegimes() {
		sig := s.Score(sampleInput(), state(r))
		assert.Equal(t, DefaultWeights(), sig.WeightsUsed, r)
		assert.NotContains(t, sig.Notes, "weights renormalized over available factors", r)
	}
}

func TestScorer_Idempotent(t *testing.T) {
	s := newTestScorer(t)
	st := regime.State{Regime: core.RegimeNeutral, Score: 48.5, VIXLevel: core.Float(24), TrendPct: core.Float(-1)}

	in := sampleInput()
	in.MomentumScore = nil

	first, err := json.Marshal(s.Score(in, st))
	require.NoError(t, err)
	second, err := json.Marshal(s.Score(in, st))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestNewScorer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"weights sum below one", Config{Weights: Weights{Technical: 0.4, ML: 0.3, Momentum: 0.2}, Thresholds: DefaultThresholds()}},
		{"negative weight", Config{Weights: Weights{Technical: 1.2, ML: -0.2}, Thresholds: DefaultThresholds()}},
		{"unordered thresholds", Config{Weights: DefaultWeights(), Thresholds: Thresholds{StrongBuy: 60, Buy: 75, Hold: 40, Reduce: 25}}},
		{"zero reduce", Config{Weights: DefaultWeights(), Thresholds: Thresholds{StrongBuy: 75, Buy: 60, Hold: 40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScorer(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid))
		})
	}
}

func TestScorer_ScoreBatch(t *testing.T) {
	s := newTestScorer(t)

	inputs := []AssetInput{
		sampleInput(),
		{Ticker: "BTC", AssetClass: core.AssetCrypto, TechnicalScore: core.Float(30), MomentumScore: core.Float(-60)},
		{Ticker: "MSFT", AssetClass: core.AssetEquity},
	}

	got, err := s.ScoreBatch(context.Background(), inputs, state(core.RegimeRiskOn), 2)
	require.NoError(t, err)
	require.Len(t, got, 3)

	byTicker := make(map[string]AssetSignal, len(got))
	for _, sig := range got {
		byTicker[sig.Ticker] = sig
	}
	for _, in := range inputs {
		sig, ok := byTicker[in.Ticker]
		require.True(t, ok, "missing %s", in.Ticker)
		assert.Equal(t, s.Score(in, state(core.RegimeRiskOn)), sig)
	}
}

func TestScorer_ScoreBatch_Cancelled(t *testing.T) {
	s := newTestScorer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScoreBatch(ctx, []AssetInput{sampleInput()}, state(core.RegimeRiskOn), 4)
	assert.ErrorIs(t, err, context.Canceled)
}
