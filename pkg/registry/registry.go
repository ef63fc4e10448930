// Package registry keeps the named engine implementations a Session can open.
//
// Adapters register themselves from an init function:
//
//	func init() {
//		registry.Register("memory", Open)
//	}
//
// so a blank import of the adapter package is enough to make it selectable by
// name.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/augeas/pkg/ports"
)

// Registry manages the available engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]ports.OpenFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]ports.OpenFunc),
	}
}

// Register adds an engine to the registry.
// If an engine with the same name exists, it is overwritten.
func (r *Registry) Register(name string, open ports.OpenFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = open
}

// Lookup returns the engine registered under name.
func (r *Registry) Lookup(name string) (ports.OpenFunc, error) {
	r.mu.RLock()
	open, ok := r.engines[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("engine not registered: %s", name)
	}
	return open, nil
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var std = NewRegistry()

// Register adds an engine to the process-wide registry.
func Register(name string, open ports.OpenFunc) {
	std.Register(name, open)
}

// Lookup finds an engine in the process-wide registry.
func Lookup(name string) (ports.OpenFunc, error) {
	return std.Lookup(name)
}

// Names lists the engines in the process-wide registry.
func Names() []string {
	return std.Names()
}
