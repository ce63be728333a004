package regime

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a computed regime is served before recomputation.
const DefaultTTL = 15 * time.Minute

// Lookup results reported to the lookup hook.
const (
	LookupHit     = "hit"
	LookupRefresh = "refresh"
	LookupShared  = "shared"
	LookupStale   = "stale"
)

// Loader fetches inputs and computes a fresh State.
type Loader func(ctx context.Context) (State, error)

type cacheEntry struct {
	state   State
	expires time.Time
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	TTL time.Duration
	// RefreshTimeout bounds a single recomputation. It is detached from the
	// triggering caller's context so one cancelled request does not fail the
	// callers waiting on the same refresh.
	RefreshTimeout time.Duration
}

// Cache serves the current State to concurrent readers and recomputes it at
// most once per expiry. Callers that arrive during a refresh wait for it and
// share its result.
type Cache struct {
	cfg      CacheConfig
	load     Loader
	now      func() time.Time
	logger   *zap.Logger
	onLookup func(result string)

	current atomic.Pointer[cacheEntry]
	group   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock overrides the clock used for expiry.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLookupHook registers a callback receiving one Lookup* result per Get.
func WithLookupHook(fn func(result string)) CacheOption {
	return func(c *Cache) { c.onLookup = fn }
}

// NewCache creates a cache around loader.
func NewCache(cfg CacheConfig, loader Loader, opts ...CacheOption) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	c := &Cache{
		cfg:    cfg,
		load:   loader,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached state, refreshing it when expired.
func (c *Cache) Get(ctx context.Context) (State, error) {
	if e := c.current.Load(); e != nil && c.now().Before(e.expires) {
		c.observe(LookupHit)
		return e.state, nil
	}

	ch := c.group.DoChan("regime", func() (any, error) {
		// Another flight may have completed between our check and this call.
		if e := c.current.Load(); e != nil && c.now().Before(e.expires) {
			return e.state, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RefreshTimeout)
		defer cancel()

		st, err := c.load(loadCtx)
		if err != nil {
			return State{}, err
		}
		c.current.Store(&cacheEntry{state: st, expires: c.now().Add(c.cfg.TTL)})
		return st, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return c.fallback(res.Err)
		}
		if res.Shared {
			c.observe(LookupShared)
		} else {
			c.observe(LookupRefresh)
		}
		return res.Val.(State), nil
	case <-ctx.Done():
		return c.fallback(ctx.Err())
	}
}

// Peek returns the last computed state without triggering a refresh.
func (c *Cache) Peek() (State, bool) {
	e := c.current.Load()
	if e == nil {
		return State{}, false
	}
	return e.state, true
}

// Invalidate forces the next Get to recompute. The previous state is kept
// as the fallback should that recomputation fail.
func (c *Cache) Invalidate() {
	if e := c.current.Load(); e != nil {
		c.current.CompareAndSwap(e, &cacheEntry{state: e.state})
	}
}

func (c *Cache) fallback(err error) (State, error) {
	e := c.current.Load()
	if e == nil {
		return State{}, err
	}
	c.logger.Warn("regime refresh failed, serving previous state",
		zap.Time("computed_at", e.state.ComputedAt),
		zap.Error(err),
	)
	c.observe(LookupStale)
	st := e.state
	st.Stale = true
	return st, nil
}

func (c *Cache) observe(result string) {
	if c.onLookup != nil {
		c.onLookup(result)
	}
}
