package engine

import (
	"sync"
)

// Service is the uniform lifecycle shape shared by the engine's background
// servers. Destroy must be a safe no-op on a server that never started;
// shutdown relies on that when open fails partway.
type Service interface {
	// Name identifies the service in logs.
	Name() string

	// Destroy stops the service and releases its resources.
	Destroy() error
}

// Terminator is implemented by pluggable components that need a teardown
// callback before removal.
type Terminator interface {
	Terminate() error
}

// componentRegistry holds one class of registered pluggable components
// (collators, compressors, data sources, encryptors, extractors).
type componentRegistry struct {
	kind string

	mu         sync.Mutex
	components map[string]any
}

func newComponentRegistry(kind string) *componentRegistry {
	return &componentRegistry{
		kind:       kind,
		components: make(map[string]any),
	}
}

func (r *componentRegistry) add(name string, c any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		return errDuplicateComponent(r.kind, name)
	}
	r.components[name] = c
	return nil
}

func (r *componentRegistry) get(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.components[name]
	return c, ok
}

// removeAll drains the registry, invoking each component's terminate hook.
// Every removal runs even when an earlier one fails; the first error is
// returned.
func (r *componentRegistry) removeAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, c := range r.components {
		if t, ok := c.(Terminator); ok {
			if err := t.Terminate(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(r.components, name)
	}
	return firstErr
}
