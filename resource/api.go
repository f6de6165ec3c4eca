package resource

// Loader produces a resource R from a descriptor A (a path, a path+size pair, ...).
// It is the only collaborator the Manager calls on a miss.
//
// Contract:
//   - Load must not touch the manager; the manager alone inserts into its store.
//   - Errors are forwarded to the caller of Manager.Load unchanged.
//   - The loader is borrowed: the manager never closes or releases it.
type Loader[A any, R any] interface {
	Load(args A) (R, error)
}

// LoaderFunc adapts an ordinary function to the Loader interface.
type LoaderFunc[A any, R any] func(args A) (R, error)

// Load calls f(args).
func (f LoaderFunc[A, R]) Load(args A) (R, error) { return f(args) }

// Compile-time check: ensure LoaderFunc implements Loader.
var _ Loader[string, int] = LoaderFunc[string, int](nil)
