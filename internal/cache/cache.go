// Package cache provides a time-bounded key/value store with single-flight
// coalescing: under N concurrent lookups of the same missing key, exactly one
// fetch reaches the upstream and every caller shares its outcome.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL matches the acceptable staleness of point-of-interest data;
// places change infrequently.
const DefaultTTL = 24 * time.Hour

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a concurrency-safe store with one fixed TTL per instance.
// Construct instances explicitly and pass them to their owner; there is no
// process-wide cache.
type Cache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
	flight  singleflight.Group
}

// New builds a cache whose entries live for ttl. A non-positive ttl falls
// back to DefaultTTL.
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// GetOrFetch returns the live cached value for key, or runs fetch to obtain
// one. Concurrent callers for the same key share a single fetch; its failure
// is surfaced to every waiter and nothing is stored, so the next call retries
// the network. A caller abandoning its context gets its context error back
// but does not cancel the in-flight fetch; other waiters may still need it,
// so fetches run to completion or failure and successes are stored.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	// The fetch runs detached from the initiator's context: other waiters
	// on the same key may still need the result after the initiator leaves.
	// The fetch implementation bounds itself (transport timeouts).
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		// A concurrent flight may have stored the value between our miss
		// and this callback running.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Len reports the number of stored entries, expired ones included until
// their next lookup.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// lookup returns the live value for key. Expired entries are removed here;
// eviction is lazy, there is no background sweep.
func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) store(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: v, storedAt: c.now()}
}
