package resource

import (
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by Load after the manager was closed.
	ErrClosed = errors.New("resource: manager closed")
	// ErrReleased is returned by a second Handle.Release and is the panic
	// value of Value/Clone on a released handle.
	ErrReleased = errors.New("resource: handle already released")
)

// Manager memoizes loads of expensive resources keyed by their descriptor.
//
// K is the owned lookup key, A the descriptor handed to the loader, R the
// resource. A successful load for a key happens at most once per manager;
// failed loads are not cached and are retried by the next Load.
//
// Manager is not safe for concurrent use. Wrap it with Guard when several
// goroutines share it.
type Manager[K comparable, A any, R any] struct {
	loader  Loader[A, R]
	key     func(A) K
	entries map[K]*shared[R]
	closed  bool

	opt Options
}

// New constructs a manager whose descriptors are already keys
// (e.g. a path string or a comparable struct).
func New[K comparable, R any](loader Loader[K, R], opt Options) *Manager[K, K, R] {
	return NewKeyed[K, K, R](loader, func(k K) K { return k }, opt)
}

// NewKeyed constructs a manager that derives the owned lookup key from each
// descriptor with key. key must be deterministic and free of side effects:
// descriptors mapping to equal keys always share one entry.
func NewKeyed[K comparable, A any, R any](loader Loader[A, R], key func(A) K, opt Options) *Manager[K, A, R] {
	if loader == nil {
		panic("resource: nil Loader")
	}
	if key == nil {
		panic("resource: nil key function")
	}
	return &Manager[K, A, R]{
		loader:  loader,
		key:     key,
		entries: make(map[K]*shared[R]),
		opt:     opt.withDefaults(),
	}
}

// Load returns a handle to the resource described by args, calling the
// loader only if no entry exists for its key yet. Loader errors are
// returned unchanged and leave the manager untouched.
func (m *Manager[K, A, R]) Load(args A) (*Handle[R], error) {
	if m.closed {
		return nil, ErrClosed
	}
	k := m.key(args)
	if h, ok := m.lookup(k); ok {
		return h, nil
	}

	r, err := m.call(k, args)
	if err != nil {
		return nil, err
	}
	h, _ := m.insert(k, r).handle()
	return h, nil
}

// Contains reports whether the key for args is resident. It never loads.
func (m *Manager[K, A, R]) Contains(args A) bool {
	_, ok := m.entries[m.key(args)]
	return ok
}

// Len returns the number of resident entries.
func (m *Manager[K, A, R]) Len() int { return len(m.entries) }

// Close drops the manager's reference to every entry. Handles obtained
// earlier stay valid until their holders release them. The returned error
// joins the Close errors of resources the manager was the last holder of.
// Further Loads return ErrClosed; Close is idempotent.
func (m *Manager[K, A, R]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for k, s := range m.entries {
		if err := s.release(); err != nil {
			m.opt.Logger.Warn("resource close failed", zap.Any("key", k), zap.Error(err))
			errs = append(errs, err)
		}
	}
	m.entries = nil
	m.opt.Metrics.Size(0)
	return errors.Join(errs...)
}

// ---- helpers (shared with Guarded) ----

// lookup returns a fresh handle for a resident key.
func (m *Manager[K, A, R]) lookup(k K) (*Handle[R], bool) {
	s, ok := m.entries[k]
	if !ok {
		return nil, false
	}
	// The manager's own reference keeps the count positive.
	h, ok := s.handle()
	if ok {
		m.opt.Metrics.Hit()
		m.opt.Logger.Debug("resource hit", zap.Any("key", k), zap.Int("refs", h.Refs()))
	}
	return h, ok
}

// call invokes the loader and reports the outcome. It does not touch entries.
func (m *Manager[K, A, R]) call(k K, args A) (R, error) {
	m.opt.Metrics.Miss()
	start := m.opt.Clock()
	r, err := m.loader.Load(args)
	d := m.opt.Clock().Sub(start)
	m.opt.Metrics.LoadDone(d, err)
	if err != nil {
		m.opt.Logger.Warn("resource load failed", zap.Any("key", k), zap.Duration("took", d), zap.Error(err))
		return r, err
	}
	m.opt.Logger.Debug("resource loaded", zap.Any("key", k), zap.Duration("took", d))
	return r, nil
}

// insert stores r under k, holding the cache's reference.
func (m *Manager[K, A, R]) insert(k K, r R) *shared[R] {
	s := newShared(r)
	m.entries[k] = s
	m.opt.Metrics.Size(len(m.entries))
	return s
}
