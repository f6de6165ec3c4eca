package resource

import (
	"io"
	"sync/atomic"
)

// shared is the reference-counted box around one loaded resource.
// The manager holds one reference while the entry is resident; every
// Handle holds one more. The last release closes the value if it is an
// io.Closer.
type shared[R any] struct {
	val  R
	refs atomic.Int64
}

// newShared returns a box with a single reference (the cache's).
func newShared[R any](v R) *shared[R] {
	s := &shared[R]{val: v}
	s.refs.Store(1)
	return s
}

// acquire adds a reference unless the count already reached zero.
// A zero count means the value has been (or is being) closed.
func (s *shared[R]) acquire() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops one reference and closes the value when it was the last.
func (s *shared[R]) release() error {
	if s.refs.Add(-1) != 0 {
		return nil
	}
	if c, ok := any(s.val).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// handle acquires a new reference and wraps it. ok is false if the
// resource is already gone.
func (s *shared[R]) handle() (*Handle[R], bool) {
	if !s.acquire() {
		return nil, false
	}
	return &Handle[R]{s: s}, true
}

// Handle is one holder's reference to a shared resource.
//
// Every handle returned by Manager.Load (or Clone) must be released exactly
// once. The resource stays alive while the manager or any handle still
// references it; its lifetime is not tied to the manager.
//
// A single Handle must not be released concurrently with its own use, but
// distinct handles to the same resource may live on different goroutines.
type Handle[R any] struct {
	s        *shared[R]
	released atomic.Bool
}

// Value returns the resource. It panics with ErrReleased if this handle
// was already released.
func (h *Handle[R]) Value() R {
	if h.released.Load() {
		panic(ErrReleased)
	}
	return h.s.val
}

// Clone returns a new, independent holder of the same resource.
// It panics with ErrReleased if this handle was already released.
func (h *Handle[R]) Clone() *Handle[R] {
	if h.released.Load() {
		panic(ErrReleased)
	}
	// This handle keeps the count above zero, so acquire cannot fail.
	h.s.refs.Add(1)
	return &Handle[R]{s: h.s}
}

// Release drops this holder's reference. If it was the last reference and
// the resource implements io.Closer, Close is called and its error returned.
// Releasing twice returns ErrReleased.
func (h *Handle[R]) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	return h.s.release()
}

// Same reports whether both handles refer to the same resource instance.
func (h *Handle[R]) Same(o *Handle[R]) bool {
	return h != nil && o != nil && h.s == o.s
}

// Refs returns the current share count, including the manager's reference
// while the entry is resident.
func (h *Handle[R]) Refs() int { return int(h.s.refs.Load()) }
