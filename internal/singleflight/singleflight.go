// Package singleflight coalesces concurrent calls for the same key.
package singleflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked wraps the panic value seen by followers when the leader's fn panicked.
var ErrPanicked = errors.New("singleflight: fn panicked")

// Group runs fn at most once per key among overlapping callers.
// The zero value is ready to use.
//
//   - The first caller for a key becomes the leader and runs fn.
//   - Followers wait on c.done; the result is published before close(c.done).
//   - A follower's ctx only bounds its own wait. It never cancels the leader.
//   - If fn panics, followers get an error wrapping ErrPanicked and the
//     leader re-panics after the key has been cleared.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{}
	val  V
	err  error
	dups int
}

// Do runs fn for key unless a call is already in flight, in which case it
// waits for that call. shared reports whether the result was handed to
// more than one caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			var zero V
			return zero, true, ctx.Err()
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	g.mu.Lock()
	shared = c.dups > 0
	g.mu.Unlock()
	return c.val, shared, c.err
}

// run executes fn, publishes its result and clears the in-flight marker.
func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	normal := false
	defer func() {
		var p any
		if !normal {
			p = recover()
			c.err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
		g.mu.Lock()
		delete(g.m, key)
		g.mu.Unlock()
		close(c.done)
		// p is nil when fn called runtime.Goexit; let that unwind as is.
		if p != nil {
			panic(p)
		}
	}()
	c.val, c.err = fn()
	normal = true
}

// InFlight reports whether a call for key is currently running.
func (g *Group[K, V]) InFlight(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}
