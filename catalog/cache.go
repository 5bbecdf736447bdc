package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache key prefixes. Invalidating BookListPrefix after an upload or delete
// leaves stats and per-book lookups untouched.
const (
	BookListPrefix   = "books|"
	BookDetailPrefix = "book|"
	StatsKey         = "stats"
)

// Policy centralizes the freshness, retry and timeout knobs that would
// otherwise end up as magic numbers at every call site.
type Policy struct {
	Fresh        time.Duration // serve cached data without refetching
	Stale        time.Duration // serve cached data, refresh in background
	Retries      int           // attempts after the first, transport/5xx only
	RetryBackoff time.Duration // first backoff step, doubles per attempt
	Timeout      time.Duration // per-request HTTP timeout
}

func DefaultPolicy() Policy {
	return Policy{
		Fresh:        30 * time.Second,
		Stale:        5 * time.Minute,
		Retries:      2,
		RetryBackoff: 500 * time.Millisecond,
		Timeout:      15 * time.Second,
	}
}

type cacheEntry struct {
	data       any
	err        error
	fetchedAt  time.Time
	refreshing bool
}

// Cache is a request-keyed cache with two-tier freshness. Within the fresh
// window hits return immediately; within the stale window hits return the
// cached value while one background refresh runs; beyond it the loader runs
// inline. A failed loader never evicts previously good data.
type Cache struct {
	mu      sync.Mutex
	policy  Policy
	entries map[string]*cacheEntry
	now     func() time.Time
}

func NewCache(policy Policy) *Cache {
	return &Cache{
		policy:  policy,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// SetClock replaces the cache's time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Fetch returns the cached value for key, running loader as the freshness
// policy dictates. On loader failure the previous value (if any) is
// returned alongside the error.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.fetchedAt.IsZero() {
		age := c.now().Sub(e.fetchedAt)
		if age <= c.policy.Fresh {
			data, err := e.data, e.err
			c.mu.Unlock()
			return data, err
		}
		if age <= c.policy.Stale {
			if !e.refreshing {
				e.refreshing = true
				go c.refresh(ctx, key, loader)
			}
			data := e.data
			c.mu.Unlock()
			return data, nil
		}
	}
	c.mu.Unlock()

	data, err := loader(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok = c.entries[key]
	if err != nil {
		if ok && e.data != nil {
			e.err = err
			return e.data, err
		}
		c.entries[key] = &cacheEntry{err: err, fetchedAt: c.now()}
		return nil, err
	}
	c.entries[key] = &cacheEntry{data: data, fetchedAt: c.now()}
	return data, nil
}

func (c *Cache) refresh(ctx context.Context, key string, loader func(context.Context) (any, error)) {
	data, err := loader(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.refreshing = false
	if err != nil {
		e.err = err
		return
	}
	e.data = data
	e.err = nil
	e.fetchedAt = c.now()
}

// Invalidate marks every entry whose key starts with prefix for refetch on
// next access. Data is kept so consumers still have something to show.
// Calling it twice is the same as calling it once.
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.fetchedAt = time.Time{}
		}
	}
}

// Mutate applies a synchronous in-place transform to a cached value, used
// for optimistic updates without waiting for the network. The updater must
// not call back into the cache.
func (c *Cache) Mutate(key string, updater func(any) any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.data == nil {
		return false
	}
	e.data = updater(e.data)
	return true
}

// Err reports the last loader error recorded for key, if any.
func (c *Cache) Err(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.err
	}
	return nil
}
