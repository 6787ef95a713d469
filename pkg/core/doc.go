// Package core defines the shared language of the Sluice system.
//
// This package contains:
//   - Domain entities (Resource, Column, Params, Reference)
//   - The closed set of resource kinds and their structural capabilities
//   - Configuration types (ProjectConfig, TargetConfig)
//   - Identifier quoting and qualified-name helpers
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
