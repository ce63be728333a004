package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/newthinker/compass/internal/core"
)

// BreakerConfig controls when an upstream source is cut off.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32 `mapstructure:"max_failures"`
	// FailureRatio opens the breaker once MinRequests have been seen in
	// the current interval.
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:  3,
		FailureRatio: 0.5,
		MinRequests:  20,
		Interval:     60 * time.Second,
		OpenTimeout:  60 * time.Second,
	}
}

// StateObserver is told when a breaker changes state.
type StateObserver func(breaker, to string)

// NewBreaker builds a circuit breaker for one upstream source.
func NewBreaker(name string, cfg BreakerConfig, observe StateObserver) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.MaxFailures > 0 && counts.ConsecutiveFailures >= cfg.MaxFailures {
				return true
			}
			if cfg.FailureRatio <= 0 || counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > cfg.FailureRatio
		},
		IsSuccessful: upstreamHealthy,
	}
	if observe != nil {
		st.OnStateChange = func(name string, _, to gobreaker.State) {
			observe(name, to.String())
		}
	}
	return gobreaker.NewCircuitBreaker(st)
}

// upstreamHealthy reports whether err says nothing about the upstream's
// health: bad symbols, empty results and caller cancellation do not count
// as failures.
func upstreamHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, core.ErrInvalidInput) ||
		errors.Is(err, core.ErrNoData) ||
		errors.Is(err, context.Canceled)
}
