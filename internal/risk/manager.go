package risk

import (
	"fmt"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/regime"
)

// Config holds the limit set for each regime. RISK_ON always uses Base.
type Config struct {
	Base    LimitSet `mapstructure:"base"`
	Neutral LimitSet `mapstructure:"neutral"`
	RiskOff LimitSet `mapstructure:"risk_off"`
}

// DefaultConfig returns the canonical base limits with the NEUTRAL and
// RISK_OFF tightenings applied.
func DefaultConfig() Config {
	base := DefaultBaseLimits()

	neutral := base
	neutral.SingleStockMaxPct = 7.5
	neutral.SingleCryptoMaxPct = 3.5

	riskOff := base
	riskOff.SingleStockMaxPct = 5
	riskOff.SingleCryptoMaxPct = 2
	riskOff.CashMinPct = 30

	return Config{Base: base, Neutral: neutral, RiskOff: riskOff}
}

// Validate checks every limit is in range and that limits only tighten as
// regime risk increases.
func (c Config) Validate() error {
	if err := c.Base.validate("base"); err != nil {
		return err
	}
	if err := c.Neutral.validate("neutral"); err != nil {
		return err
	}
	if err := c.RiskOff.validate("risk_off"); err != nil {
		return err
	}
	if !c.Neutral.tighterOrEqual(c.Base) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("neutral limits must not be looser than base"))
	}
	if !c.RiskOff.tighterOrEqual(c.Neutral) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk_off limits must not be looser than neutral"))
	}
	return nil
}

// Manager derives allocation limits and validates snapshots. It is immutable
// and safe for concurrent use.
type Manager struct {
	cfg Config
}

// NewManager validates the configuration and creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// Config returns the manager's configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// LimitsFor returns the limits in force for the state's regime.
// An unrecognised regime gets the RISK_OFF set.
func (m *Manager) LimitsFor(st regime.State) AllocationLimits {
	out := AllocationLimits{Regime: st.Regime, Base: m.cfg.Base}

	switch st.Regime {
	case core.RegimeRiskOn:
		out.Adjusted = nil
	case core.RegimeNeutral:
		adj := m.cfg.Neutral
		out.Adjusted = &adj
	case core.RegimeRiskOff:
		adj := m.cfg.RiskOff
		out.Adjusted = &adj
	default:
		adj := m.cfg.RiskOff
		out.Adjusted = &adj
	}
	return out
}

// Validate returns a copy of snap with compliance populated. Every breached
// limit is reported: positions in ticker order, then class totals, then cash.
func (m *Manager) Validate(snap Snapshot, limits AllocationLimits) Snapshot {
	eff := limits.Effective()
	violations := make([]Violation, 0)

	for _, p := range snap.Positions {
		limit := eff.SingleMaxPct(p.AssetClass)
		if p.Pct > limit {
			violations = append(violations, Violation{
				Rule:     singleRule(p.AssetClass),
				Ticker:   p.Ticker,
				Limit:    limit,
				Observed: p.Pct,
			})
		}
	}

	if total := snap.TotalsByClass[core.AssetEquity]; total > eff.TotalStocksMaxPct {
		violations = append(violations, Violation{
			Rule:     RuleTotalStocksMax,
			Limit:    eff.TotalStocksMaxPct,
			Observed: total,
		})
	}
	if total := snap.TotalsByClass[core.AssetCrypto]; total > eff.TotalCryptoMaxPct {
		violations = append(violations, Violation{
			Rule:     RuleTotalCryptoMax,
			Limit:    eff.TotalCryptoMaxPct,
			Observed: total,
		})
	}
	if snap.CashPct < eff.CashMinPct {
		violations = append(violations, Violation{
			Rule:     RuleCashMin,
			Limit:    eff.CashMinPct,
			Observed: snap.CashPct,
		})
	}

	out := snap
	out.Compliance = &Compliance{
		WithinLimits: len(violations) == 0,
		Violations:   violations,
	}
	return out
}

func singleRule(class core.AssetClass) string {
	if class == core.AssetCrypto {
		return RuleSingleCryptoMax
	}
	return RuleSingleStockMax
}
