// Package main is the sluice command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/sluice/internal/cli"

	// Register the built-in engine clients.
	_ "github.com/leapstack-labs/sluice/pkg/engines/httpapi"
	_ "github.com/leapstack-labs/sluice/pkg/engines/pgwire"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
