// Package collector fetches quotes and price history from market data venues.
package collector

import (
	"context"
	"time"

	"github.com/newthinker/compass/internal/core"
)

// Collector defines the interface for market data sources.
type Collector interface {
	Name() string

	// FetchQuote returns the latest quote for symbol.
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
	// FetchHistory returns bars in chronological order. Interval is one of
	// "1h", "1d", "1w".
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
