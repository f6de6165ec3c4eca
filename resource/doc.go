// Package resource provides a generic, keyed, lazily-populated cache of
// shared resources (decoded textures, font faces, ...) backed by a pluggable
// Loader.
//
// Design
//
//   - Memoization: Manager keeps a map from an owned key K to a shared,
//     reference-counted resource. A miss calls Loader.Load once; every later
//     Load with an equal key returns another handle to the same instance.
//
//   - Keys vs descriptors: the loader takes a descriptor A; the map is keyed
//     by K = key(A). New uses the descriptor itself as key; NewKeyed accepts
//     a normalizing function (e.g. path.Clean). Descriptors with equal keys
//     always share an entry.
//
//   - Failures: loader errors are forwarded unchanged and never cached; the
//     next Load for the same key calls the loader again.
//
//   - Ownership: a Handle is one holder's reference. The manager holds one
//     more reference per entry until Close. When the last reference is
//     released and the resource implements io.Closer, it is closed. Handles
//     outlive the manager.
//
//   - Eviction: none. Entries stay resident until Close.
//
//   - Concurrency: Manager is single-threaded. Guard wraps it with a mutex
//     and singleflight coalescing for use from several goroutines.
//
//   - Observability: Options.Logger (zap) and Options.Metrics (see
//     metrics/prom for a Prometheus adapter).
//
// Basic usage
//
//	m := resource.New[string, *Texture](texLoader, resource.Options{})
//	defer m.Close()
//
//	h, err := m.Load("images/player.png") // loads
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//	h2, _ := m.Load("images/player.png") // hit: h2.Same(h) == true
//	defer h2.Release()
//
// Normalized keys
//
//	m := resource.NewKeyed[string, string, *Texture](texLoader, path.Clean, resource.Options{})
//	m.Load("images/./player.png") // same entry as "images/player.png"
//
// Shared between goroutines
//
//	g := resource.Guard(m)
//	h, err := g.Load(ctx, "images/player.png")
package resource
