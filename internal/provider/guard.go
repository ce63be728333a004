// Package provider implements the decision engine's market data, technical
// indicator and holdings collaborators on top of the collectors.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

// Guarded wraps a collector with a rate limiter and a circuit breaker.
type Guarded struct {
	next    collector.Collector
	limiter *Limiter
	breaker *gobreaker.CircuitBreaker
}

// Guard protects next. The limiter may be shared between collectors; each
// collector gets its own bucket and breaker keyed by its name.
func Guard(next collector.Collector, limiter *Limiter, cfg BreakerConfig, observe StateObserver) *Guarded {
	return &Guarded{
		next:    next,
		limiter: limiter,
		breaker: NewBreaker(next.Name(), cfg, observe),
	}
}

func (g *Guarded) Name() string {
	return g.next.Name()
}

// State returns the breaker state: "closed", "half-open" or "open".
func (g *Guarded) State() string {
	return g.breaker.State().String()
}

func (g *Guarded) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	v, err := g.do(ctx, func() (any, error) {
		return g.next.FetchQuote(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Quote), nil
}

func (g *Guarded) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	v, err := g.do(ctx, func() (any, error) {
		return g.next.FetchHistory(ctx, symbol, start, end, interval)
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.OHLCV), nil
}

func (g *Guarded) do(ctx context.Context, fn func() (any, error)) (any, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, g.next.Name()); err != nil {
			return nil, err
		}
	}
	v, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("%s: %w", g.next.Name(), err))
	}
	return v, err
}
