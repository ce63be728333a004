// Package app runs the background watch loop: it keeps the regime warm and
// rescores a watchlist on a fixed interval, reporting every tier change.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/notifier"
	"github.com/newthinker/compass/internal/regime"
	"github.com/newthinker/compass/internal/scoring"
)

// Engine is the part of the decision engine the watch loop drives.
type Engine interface {
	RefreshRegime(ctx context.Context) (regime.State, error)
	ScoreBatch(ctx context.Context, refs []decision.AssetRef) ([]scoring.AssetSignal, error)
}

// Stats is a snapshot of the watch loop.
type Stats struct {
	Running   bool        `json:"running"`
	Watchlist int         `json:"watchlist"`
	Cycles    int         `json:"cycles"`
	LastRun   time.Time   `json:"last_run"`
	Regime    core.Regime `json:"regime,omitempty"`
	LastError string      `json:"last_error,omitempty"`
}

// App is the watch loop orchestrator
type App struct {
	engine    Engine
	logger    *zap.Logger
	interval  time.Duration
	notifiers *notifier.Registry

	mu        sync.RWMutex
	watchlist []decision.AssetRef
	watchSet  map[decision.AssetRef]struct{}
	last      map[decision.AssetRef]core.Action
	running   bool
	cancel    context.CancelFunc
	stats     Stats
}

// New creates a new App instance
func New(engine Engine, interval time.Duration, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &App{
		engine:   engine,
		logger:   logger,
		interval: interval,
		watchSet: make(map[decision.AssetRef]struct{}),
		last:     make(map[decision.AssetRef]core.Action),
	}
}

// SetNotifiers sets where tier changes are delivered.
func (a *App) SetNotifiers(r *notifier.Registry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifiers = r
}

// SetWatchlist replaces the assets to monitor. Duplicates are dropped.
func (a *App) SetWatchlist(refs []decision.AssetRef) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchlist = make([]decision.AssetRef, 0, len(refs))
	a.watchSet = make(map[decision.AssetRef]struct{}, len(refs))
	for _, ref := range refs {
		a.addLocked(ref)
	}
}

// AddToWatchlist adds an asset. It reports false if the asset was already watched.
func (a *App) AddToWatchlist(ref decision.AssetRef) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addLocked(ref)
}

func (a *App) addLocked(ref decision.AssetRef) bool {
	if _, exists := a.watchSet[ref]; exists {
		return false
	}
	a.watchSet[ref] = struct{}{}
	a.watchlist = append(a.watchlist, ref)
	return true
}

// RemoveFromWatchlist removes an asset from the watchlist.
func (a *App) RemoveFromWatchlist(ref decision.AssetRef) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.watchSet[ref]; !exists {
		return false
	}
	delete(a.watchSet, ref)
	delete(a.last, ref)
	for i, item := range a.watchlist {
		if item == ref {
			a.watchlist = append(a.watchlist[:i], a.watchlist[i+1:]...)
			break
		}
	}
	return true
}

// Watchlist returns a copy of the watched assets.
func (a *App) Watchlist() []decision.AssetRef {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]decision.AssetRef, len(a.watchlist))
	copy(out, a.watchlist)
	return out
}

// Start runs a cycle immediately and then once per interval until ctx is
// cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.stats.Running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	watched := len(a.watchlist)
	a.mu.Unlock()

	a.logger.Info("watch loop starting",
		zap.Int("watchlist_count", watched),
		zap.Duration("interval", a.interval),
	)

	a.runCycle(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch loop stopping")
			a.mu.Lock()
			a.running = false
			a.stats.Running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

// Stop stops the watch loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce performs a single cycle and returns the watchlist signals.
func (a *App) RunOnce(ctx context.Context) ([]scoring.AssetSignal, error) {
	return a.cycle(ctx)
}

func (a *App) runCycle(ctx context.Context) {
	if _, err := a.cycle(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("watch cycle failed", zap.Error(err))
	}
}

func (a *App) cycle(ctx context.Context) ([]scoring.AssetSignal, error) {
	st, err := a.engine.RefreshRegime(ctx)
	if err != nil {
		a.finish(st, err)
		return nil, fmt.Errorf("refreshing regime: %w", err)
	}
	if st.Degraded {
		a.logger.Warn("regime degraded", zap.String("regime", string(st.Regime)), zap.Strings("notes", st.Notes))
	}

	refs := a.Watchlist()
	if len(refs) == 0 {
		a.logger.Debug("no assets in watchlist")
		a.finish(st, nil)
		return []scoring.AssetSignal{}, nil
	}

	signals, err := a.engine.ScoreBatch(ctx, refs)
	if err != nil {
		a.finish(st, err)
		return nil, fmt.Errorf("scoring watchlist: %w", err)
	}

	now := time.Now().UTC()
	var changes []notifier.Change
	a.mu.Lock()
	for i, sig := range signals {
		ref := refs[i]
		prev, seen := a.last[ref]
		a.last[ref] = sig.Signal
		if seen && prev != sig.Signal {
			changes = append(changes, notifier.Change{
				Ticker:         sig.Ticker,
				AssetClass:     sig.AssetClass,
				From:           prev,
				To:             sig.Signal,
				CompositeScore: sig.CompositeScore,
				Regime:         sig.Regime,
				Gated:          sig.Gated,
				DetectedAt:     now,
			})
			a.logger.Info("signal changed",
				zap.String("ticker", sig.Ticker),
				zap.String("asset_class", string(sig.AssetClass)),
				zap.String("from", string(prev)),
				zap.String("to", string(sig.Signal)),
				zap.Float64("composite_score", sig.CompositeScore),
				zap.Bool("gated", sig.Gated),
			)
		}
	}
	notifiers := a.notifiers
	a.mu.Unlock()

	if notifiers != nil && len(changes) > 0 {
		for name, err := range notifiers.NotifyAll(ctx, changes) {
			a.logger.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
		}
	}

	a.finish(st, nil)
	a.logger.Debug("watch cycle complete",
		zap.String("regime", string(st.Regime)),
		zap.Int("signals", len(signals)),
	)
	return signals, nil
}

func (a *App) finish(st regime.State, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Cycles++
	a.stats.LastRun = time.Now()
	if st.Regime != "" {
		a.stats.Regime = st.Regime
	}
	a.stats.LastError = ""
	if err != nil {
		a.stats.LastError = err.Error()
	}
}

// Stats returns watch loop statistics.
func (a *App) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := a.stats
	out.Watchlist = len(a.watchlist)
	return out
}
