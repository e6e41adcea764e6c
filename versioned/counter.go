package versioned

import (
	"context"
	"sync"
	"sync/atomic"
)

// Counter issues version numbers. It is seeded from the highest version
// observed from persisted storage and never issues a number twice.
type Counter struct {
	last   atomic.Int64
	seeded chan struct{}
	once   sync.Once
}

// NewCounter creates a counter that has not yet observed persisted storage
func NewCounter() *Counter {
	return &Counter{seeded: make(chan struct{})}
}

// Observe records a version reported by persisted storage. The first call
// releases callers blocked in Next, even when v is unversioned (empty store).
func (c *Counter) Observe(v Version) {
	c.advance(v)
	c.once.Do(func() { close(c.seeded) })
}

// advance makes sure numbers issued later are above v. Unlike Observe it
// does not release Next.
func (c *Counter) advance(v Version) {
	if !v.Valid {
		return
	}
	for {
		cur := c.last.Load()
		if cur >= v.N || c.last.CompareAndSwap(cur, v.N) {
			return
		}
	}
}

// Last returns the highest version observed or issued so far
func (c *Counter) Last() int64 {
	return c.last.Load()
}

// Next returns a fresh version, higher than anything observed or issued.
// It blocks until the first persisted version has been observed.
func (c *Counter) Next(ctx context.Context) (Version, error) {
	select {
	case <-c.seeded:
	case <-ctx.Done():
		return Unversioned, ctx.Err()
	}
	return At(c.last.Add(1)), nil
}
