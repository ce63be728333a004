package regime

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/compass/internal/core"
)

// Thresholds configures classification and the display score.
type Thresholds struct {
	// RiskOnBelowVIX: VIX strictly below this is RISK_ON (absent a trend override).
	RiskOnBelowVIX float64 `mapstructure:"risk_on_below_vix"`
	// RiskOffAboveVIX: VIX strictly above this is RISK_OFF.
	RiskOffAboveVIX float64 `mapstructure:"risk_off_above_vix"`
	// DeclineTrendPct: a trend below this downgrades RISK_ON to NEUTRAL.
	DeclineTrendPct float64 `mapstructure:"decline_trend_pct"`

	// ScoreVIXLow and ScoreVIXHigh bound the linear VIX->score map (100 at low, 0 at high).
	ScoreVIXLow  float64 `mapstructure:"score_vix_low"`
	ScoreVIXHigh float64 `mapstructure:"score_vix_high"`
	TrendNudge   float64 `mapstructure:"trend_nudge"`
}

// DefaultThresholds returns the standard VIX 20/30 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RiskOnBelowVIX:  20,
		RiskOffAboveVIX: 30,
		DeclineTrendPct: -5,
		ScoreVIXLow:     10,
		ScoreVIXHigh:    40,
		TrendNudge:      5,
	}
}

// Validate checks the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	switch {
	case t.RiskOnBelowVIX <= 0:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_on_below_vix must be positive, got %v", t.RiskOnBelowVIX))
	case t.RiskOffAboveVIX < t.RiskOnBelowVIX:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_off_above_vix (%v) must be >= risk_on_below_vix (%v)", t.RiskOffAboveVIX, t.RiskOnBelowVIX))
	case t.DeclineTrendPct > 0:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("decline_trend_pct must be <= 0, got %v", t.DeclineTrendPct))
	case t.ScoreVIXLow < 0 || t.ScoreVIXHigh <= t.ScoreVIXLow:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("score vix range [%v, %v] is empty", t.ScoreVIXLow, t.ScoreVIXHigh))
	case t.TrendNudge < 0 || t.TrendNudge >= 50:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trend_nudge must be in [0, 50), got %v", t.TrendNudge))
	}
	return nil
}

// Reporter receives degraded regime states. The detector never logs on its own.
type Reporter interface {
	ReportDegraded(st State)
}

// Option configures a Detector.
type Option func(*Detector)

// WithReporter sets the reporter notified of degraded states.
func WithReporter(r Reporter) Option {
	return func(d *Detector) { d.reporter = r }
}

// WithClock overrides the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// Detector turns raw VIX/trend readings into a State.
// Classification depends only on its inputs; caching lives in Cache.
type Detector struct {
	th       Thresholds
	reporter Reporter
	now      func() time.Time
}

// NewDetector creates a detector, failing fast on inconsistent thresholds.
func NewDetector(th Thresholds, opts ...Option) (*Detector, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{th: th, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Thresholds returns the detector's configuration.
func (d *Detector) Thresholds() Thresholds {
	return d.th
}

// Detect classifies the market. Either input may be nil; the result is always usable.
func (d *Detector) Detect(vix, trend *float64) State {
	var notes []string
	degraded := false

	vix, vixNote := sanitize("vix_level", vix)
	trend, trendNote := sanitize("trend_pct", trend)
	for _, n := range []string{vixNote, trendNote} {
		if n != "" {
			notes = append(notes, n)
		}
	}

	if vix != nil && *vix < 0 {
		notes = append(notes, fmt.Sprintf("vix_level %.2f clamped to 0", *vix))
		vix = core.Float(0)
	}

	if vix == nil {
		degraded = true
		notes = append(notes, "vix_level unavailable, defaulting to NEUTRAL")
	}
	if trend == nil {
		degraded = true
		notes = append(notes, "trend_pct unavailable, classifying on vix_level only")
	}

	st := State{
		Regime:     d.Classify(vix, trend),
		Score:      d.Score(vix, trend),
		VIXLevel:   vix,
		TrendPct:   trend,
		ComputedAt: d.now().UTC(),
		Degraded:   degraded,
		Notes:      notes,
	}

	if degraded && d.reporter != nil {
		d.reporter.ReportDegraded(st)
	}
	return st
}

// Classify maps inputs onto a regime using the raw thresholds.
func (d *Detector) Classify(vix, trend *float64) core.Regime {
	if vix == nil {
		return core.RegimeNeutral
	}
	v := *vix
	switch {
	case v < d.th.RiskOnBelowVIX:
		if trend != nil && *trend < d.th.DeclineTrendPct {
			return core.RegimeNeutral
		}
		return core.RegimeRiskOn
	case v <= d.th.RiskOffAboveVIX:
		return core.RegimeNeutral
	default:
		return core.RegimeRiskOff
	}
}

// Score computes the 0-100 display score. It is independent of Classify.
func (d *Detector) Score(vix, trend *float64) float64 {
	score := 50.0
	if vix != nil {
		span := d.th.ScoreVIXHigh - d.th.ScoreVIXLow
		score = clamp(100*(d.th.ScoreVIXHigh-*vix)/span, 0, 100)
	}
	if trend != nil {
		switch {
		case *trend > 0:
			score += d.th.TrendNudge
		case *trend < 0:
			score -= d.th.TrendNudge
		}
	}
	return round2(clamp(score, 0, 100))
}

func sanitize(name string, v *float64) (*float64, string) {
	if v == nil {
		return nil, ""
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil, name + " is not a finite number"
	}
	return core.Float(*v), ""
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
