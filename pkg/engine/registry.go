package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/sluice/pkg/core"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Client)
)

// Register adds a client factory to the registry.
// Called by client implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Client) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a client factory by name.
func Get(name string) (func(*slog.Logger) Client, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates a client for the target's engine.
// The logger is passed to the client constructor (nil uses a discard logger).
func New(target core.TargetConfig, logger *slog.Logger) (Client, error) {
	if target.Engine == "" {
		return nil, fmt.Errorf("no engine configured: set target.engine in sluice.yaml")
	}

	factory, ok := Get(target.Engine)
	if !ok {
		return nil, &UnknownEngineError{
			Name:      target.Engine,
			Available: Engines(),
		}
	}
	return factory(logger), nil
}

// Engines returns all registered engine names (sorted).
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an engine name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownEngineError is returned when an unknown engine is requested.
type UnknownEngineError struct {
	Name      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine %q\nAvailable engines: %v\nHint: Check target.engine in sluice.yaml", e.Name, e.Available)
}
