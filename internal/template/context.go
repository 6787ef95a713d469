package template

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// TargetInfo contains engine target information.
// Exposed as the "target" global in expressions.
type TargetInfo struct {
	Name     string // Profile name ("default" when unnamed)
	Engine   string // "pgwire", "httpapi"
	Database string // Database name
	Schema   string // Default schema
}

// ToStarlark converts TargetInfo to a Starlark struct value.
func (t *TargetInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("target"), starlark.StringDict{
		"name":     starlark.String(t.Name),
		"engine":   starlark.String(t.Engine),
		"database": starlark.String(t.Database),
		"schema":   starlark.String(t.Schema),
	})
}

// Context carries the read-only globals visible to expressions.
type Context struct {
	// Vars are project variables, exposed as the "config" dict.
	Vars map[string]any
	// Env is the environment name ("dev", "prod", ...), exposed as "env".
	Env string
	// Target describes the active engine target, exposed as "target".
	Target *TargetInfo
	// This is the resource's own qualified name, exposed as "this" so a query
	// can refer to the relation it defines.
	This string
}

// globals builds the predeclared dict for one render, wiring ref/source
// through the given collector.
func (c *Context) globals(refs *refCollector) (starlark.StringDict, error) {
	var vars starlark.Value = starlark.NewDict(0)
	if c.Vars != nil {
		converted, err := GoToStarlark(c.Vars)
		if err != nil {
			return nil, fmt.Errorf("converting project vars: %w", err)
		}
		vars = converted
	}

	g := starlark.StringDict{
		"config": vars,
		"env":    starlark.String(c.Env),
		"this":   starlark.String(c.This),
		"ref":    refBuiltin(refs),
		"source": sourceBuiltin(refs),
	}
	if c.Target != nil {
		g["target"] = c.Target.ToStarlark()
	}
	return g, nil
}

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, int, int64, float64, bool, []string, []any, map[string]any
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		items := make([]starlark.Value, len(val))
		for i, s := range val {
			items[i] = starlark.String(s)
		}
		return starlark.NewList(items), nil

	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			conv, err := GoToStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = conv
		}
		return starlark.NewList(items), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			conv, err := GoToStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), conv); err != nil {
				return nil, err
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
