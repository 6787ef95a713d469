// Package httpapi provides an engine client for streaming SQL engines
// that accept statements over an HTTP JSON API.
//
// This file registers the client with the engine registry. Import this
// package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/sluice/pkg/engines/httpapi"
package httpapi

import (
	"log/slog"

	"github.com/leapstack-labs/sluice/pkg/engine"
)

func init() {
	engine.Register(EngineName, func(logger *slog.Logger) engine.Client { return New(logger) })
}
