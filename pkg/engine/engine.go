// Package engine defines the client contract for submitting compiled
// statements to a streaming SQL engine.
//
// This package contains the public contract that all engine clients must
// implement. Concrete client implementations are in pkg/engines/
// subdirectories and register themselves in init(), so blank-importing a
// client package makes its engine selectable by name.
package engine

import (
	"context"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// Client is a connection to one streaming SQL engine. Implementations
// must be safe for concurrent Submit calls once Connect has returned.
type Client interface {
	// Connect establishes the connection described by the target.
	Connect(ctx context.Context, target core.TargetConfig) error

	// Ping verifies the connection is alive and the engine is reachable.
	Ping(ctx context.Context) error

	// Submit sends a single DDL statement to the engine and waits for it
	// to be accepted.
	Submit(ctx context.Context, statement string) error

	// Close closes the connection and releases resources.
	Close() error

	// Name returns the engine name the client is registered under.
	Name() string
}
