// Package crypto routes crypto market data requests across exchange venues
// with automatic failover.
package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

// DefaultQuote is the quote currency appended to bare base assets.
const DefaultQuote = "USDT"

// Collector implements collector.Collector over an ordered list of venues.
// Venues receive normalized pair symbols such as "BTCUSDT".
type Collector struct {
	venues       []collector.Collector
	defaultQuote string
}

// New creates a failover collector trying venues in order.
func New(defaultQuote string, venues ...collector.Collector) *Collector {
	if defaultQuote == "" {
		defaultQuote = DefaultQuote
	}
	return &Collector{venues: venues, defaultQuote: defaultQuote}
}

func (c *Collector) Name() string {
	return "crypto"
}

// Normalize returns the pair symbol venues are queried with.
func (c *Collector) Normalize(symbol string) string {
	return NormalizeSymbol(symbol, c.defaultQuote)
}

// FetchQuote returns the first venue's successful quote.
func (c *Collector) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	pair := c.Normalize(symbol)

	var lastErr error
	for _, v := range c.venues {
		quote, err := v.FetchQuote(ctx, pair)
		if err == nil {
			quote.Symbol = pair
			quote.Source = "crypto:" + v.Name()
			return quote, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, c.exhausted(pair, lastErr)
}

// FetchHistory returns the first venue's non-empty history.
func (c *Collector) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	pair := c.Normalize(symbol)

	var lastErr error
	for _, v := range c.venues {
		data, err := v.FetchHistory(ctx, pair, start, end, interval)
		if err == nil && len(data) > 0 {
			for i := range data {
				data[i].Symbol = pair
			}
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			lastErr = err
		}
	}
	return nil, c.exhausted(pair, lastErr)
}

func (c *Collector) exhausted(pair string, lastErr error) error {
	if lastErr == nil {
		return core.WrapError(core.ErrNoData, fmt.Errorf("no venue returned data for %s", pair))
	}
	return core.WrapError(core.ErrProviderFailed, fmt.Errorf("all venues failed for %s: %w", pair, lastErr))
}
