package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sluice/pkg/core"
)

func TestUnknownEngineError_Error(t *testing.T) {
	err := &UnknownEngineError{
		Name:      "flinkish",
		Available: []string{"httpapi", "pgwire"},
	}

	msg := err.Error()

	assert.Contains(t, msg, "flinkish", "error should mention the unknown engine")
	assert.Contains(t, msg, "pgwire", "error should list the registered engines")
	assert.Contains(t, msg, "sluice.yaml", "error should mention the config file")
}

func TestRegister(t *testing.T) {
	Register("test_engine_internal", func(_ *slog.Logger) Client { return nil })

	assert.True(t, IsRegistered("test_engine_internal"), "engine should be registered after Register()")

	factory, ok := Get("test_engine_internal")
	assert.True(t, ok, "Get should find the registered engine")
	assert.NotNil(t, factory, "Get should return a non-nil factory")
}

func TestNew_EmptyEngine(t *testing.T) {
	_, err := New(core.TargetConfig{}, nil)

	require.Error(t, err, "New with no engine should fail")
	assert.Contains(t, err.Error(), "no engine configured")
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := New(core.TargetConfig{Engine: "nonexistent"}, nil)

	require.Error(t, err)
	var unknown *UnknownEngineError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent", unknown.Name)
}

func TestEngines_Sorted(t *testing.T) {
	Register("zzz_test_engine", func(_ *slog.Logger) Client { return nil })
	Register("aaa_test_engine", func(_ *slog.Logger) Client { return nil })

	names := Engines()

	var aaa, zzz int
	for i, n := range names {
		switch n {
		case "aaa_test_engine":
			aaa = i
		case "zzz_test_engine":
			zzz = i
		}
	}
	assert.Less(t, aaa, zzz, "engine names should come back sorted")
}
