package subdiv

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"mesh-subdivider/internal/mesh"
	"mesh-subdivider/internal/taskqueue"
)

// ErrUnknownStrategy is returned for names nothing was registered under.
var ErrUnknownStrategy = errors.New("subdiv: unknown strategy")

// Factory returns a fresh Strategy. Strategies may keep per-pass state, so
// every Subdivider gets its own instance.
type Factory func() Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a strategy available by name. It panics if called twice
// with the same name or with a nil factory; call it from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("subdiv: Register factory is nil for " + name)
	}
	if _, dup := registry[name]; dup {
		panic("subdiv: Register called twice for " + name)
	}
	registry[name] = f
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup instantiates the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return f(), nil
}

// New builds a Subdivider running the named strategy on target.
func New(name string, target *mesh.Submesh, queue taskqueue.Enqueuer) (*Subdivider, error) {
	s, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewSubdivider(s, target, queue), nil
}
