// Package handler implements the HTTP API over the decision engine.
package handler

import (
	"context"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/regime"
	"github.com/newthinker/compass/internal/risk"
	"github.com/newthinker/compass/internal/scoring"
)

// Engine is the decision surface the handlers serve. *decision.Engine
// implements it.
type Engine interface {
	Regime(ctx context.Context) (regime.State, error)
	ScoreAsset(ctx context.Context, ticker string, class core.AssetClass) (scoring.AssetSignal, error)
	ScoreBatch(ctx context.Context, refs []decision.AssetRef) ([]scoring.AssetSignal, error)
	AllocationLimits(ctx context.Context) (risk.AllocationLimits, error)
	ValidateAllocation(ctx context.Context, positions []risk.Position) (risk.Snapshot, error)
	ValidatePortfolio(ctx context.Context, portfolioID string) (risk.Snapshot, error)
}
