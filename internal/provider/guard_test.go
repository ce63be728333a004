package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

func TestGuarded_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Guarded)(nil)
}

func TestGuarded_PassesThrough(t *testing.T) {
	stub := &stubCollector{quote: &core.Quote{Symbol: "^VIX", Price: 18}}
	g := Guard(stub, NewLimiter(RateLimitConfig{}), DefaultBreakerConfig(), nil)

	q, err := g.FetchQuote(context.Background(), "^VIX")
	require.NoError(t, err)
	assert.Equal(t, 18.0, q.Price)
	assert.Equal(t, "stub", g.Name())
	assert.Equal(t, "closed", g.State())
}

func TestGuarded_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubCollector{err: core.WrapError(core.ErrProviderFailed, fmt.Errorf("503"))}
	var transitions []string
	g := Guard(stub, nil, DefaultBreakerConfig(), func(name, to string) {
		transitions = append(transitions, name+":"+to)
	})
	ctx := context.Background()

	for range 3 {
		_, err := g.FetchQuote(ctx, "^VIX")
		require.Error(t, err)
	}
	assert.Equal(t, "open", g.State())
	assert.Equal(t, []string{"stub:open"}, transitions)

	_, err := g.FetchHistory(ctx, "^GSPC", stubTime, stubTime, "1d")
	assert.True(t, errors.Is(err, core.ErrProviderFailed))
	assert.Equal(t, int32(3), stub.calls.Load(), "open breaker must not call upstream")
}

func TestGuarded_NoDataDoesNotTrip(t *testing.T) {
	stub := &stubCollector{err: core.WrapError(core.ErrNoData, fmt.Errorf("empty"))}
	g := Guard(stub, nil, DefaultBreakerConfig(), nil)

	for range 5 {
		_, err := g.FetchQuote(context.Background(), "XYZ")
		assert.True(t, errors.Is(err, core.ErrNoData))
	}
	assert.Equal(t, "closed", g.State())
	assert.Equal(t, int32(5), stub.calls.Load())
}

func TestGuarded_WaitRespectsContext(t *testing.T) {
	stub := &stubCollector{quote: &core.Quote{Price: 1}}
	g := Guard(stub, NewLimiter(RateLimitConfig{RPS: 1, Burst: 1}), DefaultBreakerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.FetchQuote(ctx, "AAPL")
	assert.Error(t, err)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestLimiter(t *testing.T) {
	unlimited := NewLimiter(RateLimitConfig{})
	for range 100 {
		require.True(t, unlimited.Allow("yahoo"))
	}

	l := NewLimiter(RateLimitConfig{RPS: 0.001, Burst: 1})
	assert.True(t, l.Allow("yahoo"))
	assert.False(t, l.Allow("yahoo"))
	assert.True(t, l.Allow("binance"), "sources have separate buckets")
}
