// Package notifier delivers signal tier changes to external channels.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/compass/internal/core"
)

// Change is one asset moving from one signal tier to another.
type Change struct {
	Ticker         string          `json:"ticker"`
	AssetClass     core.AssetClass `json:"asset_class"`
	From           core.Action     `json:"from"`
	To             core.Action     `json:"to"`
	CompositeScore float64         `json:"composite_score"`
	Regime         core.Regime     `json:"regime"`
	Gated          bool            `json:"gated"`
	DetectedAt     time.Time       `json:"detected_at"`
}

// Notifier defines the interface for change notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify delivers a batch of changes. An empty batch is a no-op.
	Notify(ctx context.Context, changes []Change) error
}
