// Package materialize renders validated resources into engine DDL. One
// builder exists per kind; the set is closed, so lookups can only miss when a
// caller fabricates a kind the compiler does not know.
package materialize

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// Builder renders one resource kind into its creation statements.
type Builder interface {
	// Kind returns the kind this builder serves.
	Kind() core.Kind

	// Validate checks structural rules for the kind. It repeats checks the
	// normalizer already makes, so a resource constructed by hand fails
	// here instead of producing broken DDL.
	Validate(r *core.Resource) error

	// Render produces the ordered statement list for the resource.
	// References in the query body must be substituted before calling.
	Render(r *core.Resource, scope core.Scope) ([]string, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[core.Kind]Builder)
)

// register adds a builder to the registry.
// Called by builder implementations in their init() functions.
func register(b Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[b.Kind()]; dup {
		panic("materialize: duplicate builder for kind " + string(b.Kind()))
	}
	registry[b.Kind()] = b
}

// For returns the builder for a kind.
func For(kind core.Kind) (Builder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[kind]
	if !ok {
		return nil, &UnsupportedCombinationError{
			Kind:    string(kind),
			Feature: "materialization",
			Message: "no builder registered for this kind",
		}
	}
	return b, nil
}

// Registered returns all kinds with builders, sorted.
func Registered() []core.Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]core.Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Render validates r and renders its statements in one call.
func Render(r *core.Resource, scope core.Scope) ([]string, error) {
	b, err := For(r.Kind)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(r); err != nil {
		return nil, err
	}
	return b.Render(r, scope)
}
