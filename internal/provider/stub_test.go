package provider

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/newthinker/compass/internal/core"
)

// stubCollector serves canned data and counts calls.
type stubCollector struct {
	name   string
	quote  *core.Quote
	bars   []core.OHLCV
	err    error
	calls  atomic.Int32
	symbol string
	start  time.Time
	end    time.Time
}

func (s *stubCollector) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubCollector) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	s.calls.Add(1)
	s.symbol = symbol
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func (s *stubCollector) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	s.calls.Add(1)
	s.symbol, s.start, s.end = symbol, start, end
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

var stubTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func barsOf(closes ...float64) []core.OHLCV {
	bars := make([]core.OHLCV, len(closes))
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = core.OHLCV{Close: c, Time: t0.AddDate(0, 0, i)}
	}
	return bars
}

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}
