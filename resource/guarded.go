package resource

import (
	"context"
	"sync"

	"github.com/IvanBrykalov/rescache/internal/singleflight"
)

// Guarded serializes access to a Manager so it can be shared by goroutines.
//
// Hits take the mutex only for the map lookup. Concurrent misses for the
// same key are coalesced (singleflight), so the loader still runs at most
// once per key; the loader itself runs outside the mutex, letting distinct
// keys load in parallel.
type Guarded[K comparable, A any, R any] struct {
	mu sync.Mutex
	m  *Manager[K, A, R]

	flight singleflight.Group[K, *shared[R]]
}

// Guard wraps m. The caller hands m over and must not use it directly
// afterwards.
func Guard[K comparable, A any, R any](m *Manager[K, A, R]) *Guarded[K, A, R] {
	if m == nil {
		panic("resource: nil Manager")
	}
	return &Guarded[K, A, R]{m: m}
}

// Load is Manager.Load for concurrent callers. ctx bounds only the time a
// caller waits for another goroutine's in-flight load of the same key; a
// load that has started always runs to completion.
func (g *Guarded[K, A, R]) Load(ctx context.Context, args A) (*Handle[R], error) {
	k := g.m.key(args)

	g.mu.Lock()
	if g.m.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	if h, ok := g.m.lookup(k); ok {
		g.mu.Unlock()
		return h, nil
	}
	g.mu.Unlock()

	s, _, err := g.flight.Do(ctx, k, func() (*shared[R], error) {
		// Double-check after winning the flight: a previous flight for the
		// same key may have finished between our miss and Do.
		g.mu.Lock()
		if g.m.closed {
			g.mu.Unlock()
			return nil, ErrClosed
		}
		if s, ok := g.m.entries[k]; ok {
			g.mu.Unlock()
			return s, nil
		}
		g.mu.Unlock()

		r, err := g.m.call(k, args)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.m.closed {
			// Nobody else will ever see r; drop it like a last holder would.
			_ = newShared(r).release()
			return nil, ErrClosed
		}
		return g.m.insert(k, r), nil
	})
	if err != nil {
		return nil, err
	}

	h, ok := s.handle()
	if !ok {
		// Close dropped the last reference between the flight and here.
		return nil, ErrClosed
	}
	return h, nil
}

// Contains reports whether the key for args is resident. It never loads.
func (g *Guarded[K, A, R]) Contains(args A) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Contains(args)
}

// Len returns the number of resident entries.
func (g *Guarded[K, A, R]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Len()
}

// Close closes the wrapped manager. Loads already in flight finish and
// return ErrClosed.
func (g *Guarded[K, A, R]) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.m.Close()
}
