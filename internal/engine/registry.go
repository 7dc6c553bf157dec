package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrEngineExists   = errors.New("engine already registered")
	ErrEngineNotFound = errors.New("engine not found")
)

// Factory builds one engine instance. Adapter packages wrapping concrete
// physics backends register themselves here; the CLI and facade resolve by
// name.
type Factory func() Engine

var engineRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("engine name is required")
	}
	if factory == nil {
		return errors.New("engine factory is required")
	}

	engineRegistry.mu.Lock()
	defer engineRegistry.mu.Unlock()

	if _, exists := engineRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrEngineExists, name)
	}
	engineRegistry.m[name] = factory
	return nil
}

func Resolve(name string) (Engine, error) {
	engineRegistry.mu.RLock()
	factory, ok := engineRegistry.m[name]
	engineRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, name)
	}
	return factory(), nil
}

func Registered() []string {
	engineRegistry.mu.RLock()
	defer engineRegistry.mu.RUnlock()

	names := make([]string, 0, len(engineRegistry.m))
	for n := range engineRegistry.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	engineRegistry.mu.Lock()
	engineRegistry.m = make(map[string]Factory)
	engineRegistry.mu.Unlock()
}
