package inference

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a Runtime. Each runtime backend registers its own factory.
type Factory func() (Runtime, error)

// registry stores registered runtime factories.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a runtime factory to the registry.
// Backends should call this in their init() function.
// Panics if a runtime with the same name is already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("runtime %q already registered", name))
	}
	registry[name] = factory
}

// New creates a Runtime by registered name.
// Returns ErrUnknownRuntime if the name is not registered.
func New(name string) (Runtime, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuntime, name)
	}
	return factory()
}

// Available returns the names of all registered runtimes, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a runtime is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	_, ok := registry[name]
	return ok
}

// Unregister removes a runtime from the registry.
// This is primarily useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(registry, name)
}
