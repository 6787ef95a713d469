// Package normalize turns raw resource definitions into validated
// core.Resource values. Everything downstream (builders, resolver, planner)
// assumes its input passed through here: the normalizer is the single place
// where configuration shape is checked.
package normalize

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// RawColumn is one column entry as written in configuration.
type RawColumn struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Type    string `yaml:"type" mapstructure:"type"`
	NotNull bool   `yaml:"not_null" mapstructure:"not_null"`
}

// RawResource is a resource definition as loaded, before validation.
// The loader fills it from files; API callers can hand a plain map to
// NormalizeMap instead.
type RawResource struct {
	Name       string           `mapstructure:"name"`
	Kind       string           `mapstructure:"kind"`
	Database   string           `mapstructure:"database"`
	Schema     string           `mapstructure:"schema"`
	Columns    []RawColumn      `mapstructure:"columns"`
	PrimaryKey []string         `mapstructure:"primary_key"`
	Store      string           `mapstructure:"store"`
	SQL        string           `mapstructure:"sql"`
	ParamsMap  map[string]any   `mapstructure:"with"`

	// Params carries parameters in document order when the source format
	// preserves it; it wins over ParamsMap when both are set.
	Params *core.Params `mapstructure:"-"`

	// Namespace and OnDemand are set by the loader for source declarations.
	Namespace string `mapstructure:"-"`
	OnDemand  bool   `mapstructure:"-"`

	// Refs are the references collected from the query body.
	Refs []core.Reference `mapstructure:"-"`

	// Path and Position locate the definition for diagnostics and stable
	// bulk-creation order.
	Path     string `mapstructure:"-"`
	Position int    `mapstructure:"-"`
}

// NormalizeMap decodes a loosely-typed definition and normalizes it.
// Unknown keys are rejected, matching the strict field handling of the
// file loader.
func NormalizeMap(m map[string]any) (*core.Resource, error) {
	var raw RawResource
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &raw,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		name, _ := m["name"].(string)
		return nil, &ConfigError{Resource: name, Message: err.Error()}
	}
	return Normalize(&raw)
}

// Normalize validates a raw definition and produces the canonical resource.
// The first violation wins; no partially-valid resource is ever returned.
func Normalize(raw *RawResource) (*core.Resource, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, &ConfigError{Field: "name", Message: "resource name is required"}
	}
	// Dots separate namespace from name in catalog keys, so neither part may
	// contain one.
	if strings.Contains(name, ".") {
		return nil, &ConfigError{Resource: name, Field: "name", Message: "resource names must not contain '.'"}
	}
	if strings.Contains(raw.Namespace, ".") {
		return nil, &ConfigError{Resource: name, Field: "namespace", Message: "namespaces must not contain '.'"}
	}

	kind, ok := core.ParseKind(raw.Kind)
	if !ok {
		if raw.Kind == "" {
			return nil, &ConfigError{Resource: name, Field: "kind", Message: "kind is required"}
		}
		return nil, &ConfigError{
			Resource: name,
			Field:    "kind",
			Message:  fmt.Sprintf("unknown kind %q (valid kinds: %s)", raw.Kind, kindList()),
		}
	}

	params, err := normalizeParams(name, raw)
	if err != nil {
		return nil, err
	}

	columns, err := normalizeColumns(name, raw.Columns)
	if err != nil {
		return nil, err
	}

	primaryKey, err := normalizePrimaryKey(name, raw.PrimaryKey, columns)
	if err != nil {
		return nil, err
	}

	trigger := core.TriggerManaged
	if raw.OnDemand {
		trigger = core.TriggerOnDemand
		if raw.Namespace == "" {
			return nil, &ConfigError{Resource: name, Field: "namespace", Message: "source resources require a namespace"}
		}
	} else if raw.Namespace != "" {
		return nil, &ConfigError{Resource: name, Field: "namespace", Message: "namespaces only apply to source resources; managed resources live in the target scope"}
	}

	r := &core.Resource{
		Name:       name,
		Namespace:  raw.Namespace,
		Database:   raw.Database,
		Schema:     raw.Schema,
		Kind:       kind,
		Trigger:    trigger,
		Columns:    columns,
		PrimaryKey: primaryKey,
		Params:     params,
		Store:      strings.TrimSpace(raw.Store),
		SQL:        strings.TrimSpace(raw.SQL),
		Refs:       raw.Refs,
		Path:       raw.Path,
		Position:   raw.Position,
	}

	if err := validateKind(r); err != nil {
		return nil, err
	}
	return r, nil
}

// validateKind enforces the per-kind structure rules.
func validateKind(r *core.Resource) error {
	if r.Store != "" && r.Params.Has("store") {
		return &ConfigError{
			Resource: r.Name,
			Field:    "with.store",
			Message:  "the store binding is set both as 'store' and as a 'with' parameter; use one",
		}
	}
	if len(r.PrimaryKey) > 0 && !r.Kind.AllowsPrimaryKey() {
		return &ConfigError{
			Resource: r.Name,
			Field:    "primary_key",
			Message:  fmt.Sprintf("primary keys apply to changelogs and tables, not to a %s", r.Kind),
		}
	}

	switch r.Kind {
	case core.KindStore:
		if r.HasQuery() {
			return &ConfigError{Resource: r.Name, Field: "sql", Message: "stores are connection objects and do not take a query body"}
		}
		if len(r.Columns) > 0 {
			return &ConfigError{Resource: r.Name, Field: "columns", Message: "stores do not declare columns"}
		}
		if r.Store != "" {
			return &ConfigError{Resource: r.Name, Field: "store", Message: "stores cannot be bound to other stores"}
		}
		if !r.Params.Has("type") {
			return &ConfigError{Resource: r.Name, Field: "with.type", Message: "stores require a 'type' parameter (kafka, kinesis, ...)"}
		}

	case core.KindEntity:
		if r.HasQuery() {
			return &ConfigError{Resource: r.Name, Field: "sql", Message: "entities are storage objects and do not take a query body"}
		}
		if len(r.Columns) > 0 {
			return &ConfigError{Resource: r.Name, Field: "columns", Message: "entities do not declare columns"}
		}
		if r.Store == "" {
			return &ConfigError{Resource: r.Name, Field: "store", Message: "entities require a store reference"}
		}

	case core.KindMaterializedView:
		if !r.HasQuery() {
			return &ConfigError{Resource: r.Name, Field: "sql", Message: "materialized views require a defining query"}
		}
		if len(r.Columns) > 0 {
			return &ConfigError{Resource: r.Name, Field: "columns", Message: "materialized views take their shape from the query; explicit columns are not allowed"}
		}

	case core.KindChangelog:
		if len(r.PrimaryKey) == 0 {
			return &ConfigError{Resource: r.Name, Field: "primary_key", Message: "changelogs require a non-empty primary key"}
		}
		if !r.HasQuery() && len(r.Columns) == 0 {
			return &ConfigError{Resource: r.Name, Field: "columns", Message: "a changelog without a query must declare its columns"}
		}

	case core.KindStream, core.KindTable:
		if !r.HasQuery() && len(r.Columns) == 0 {
			return &ConfigError{Resource: r.Name, Field: "columns", Message: fmt.Sprintf("a %s without a query must declare its columns", r.Kind)}
		}
	}
	return nil
}

// normalizeParams lower-cases parameter keys and rejects collisions.
// Insertion order of the input is preserved; unordered map input arrives
// pre-sorted via core.ParamsFromMap so output order is stable either way.
func normalizeParams(resource string, raw *RawResource) (*core.Params, error) {
	in := raw.Params
	if in == nil && raw.ParamsMap != nil {
		in = core.ParamsFromMap(raw.ParamsMap)
	}
	if in.Len() == 0 {
		return core.NewParams(), nil
	}

	out := core.NewParams()
	for _, key := range in.Keys() {
		normalized := NormalizeParamKey(key)
		if normalized == "" {
			return nil, &ConfigError{Resource: resource, Field: "with", Message: "parameter keys must not be empty"}
		}
		if out.Has(normalized) {
			return nil, &ConfigError{
				Resource: resource,
				Field:    "with." + normalized,
				Message:  fmt.Sprintf("parameter key %q collides with another key after normalization", key),
			}
		}
		value, _ := in.Get(key)
		out.Set(normalized, value)
	}
	return out, nil
}

// NormalizeParamKey canonicalizes a parameter key: trimmed, dotted segments
// lower-cased. "Value.Format" and "value.format" are the same parameter.
func NormalizeParamKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func normalizeColumns(resource string, raw []RawColumn) ([]core.Column, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]core.Column, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, c := range raw {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, &ConfigError{Resource: resource, Field: "columns", Message: fmt.Sprintf("column %d has no name", i)}
		}
		if _, dup := seen[name]; dup {
			return nil, &ConfigError{Resource: resource, Field: "columns", Message: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = struct{}{}
		typ := strings.TrimSpace(c.Type)
		if typ == "" {
			return nil, &ConfigError{Resource: resource, Field: "columns", Message: fmt.Sprintf("column %q has no type", name)}
		}
		out = append(out, core.Column{Name: name, Type: typ, NotNull: c.NotNull})
	}
	return out, nil
}

func normalizePrimaryKey(resource string, pk []string, columns []core.Column) ([]string, error) {
	if len(pk) == 0 {
		return nil, nil
	}
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c.Name] = struct{}{}
	}
	out := make([]string, 0, len(pk))
	seen := make(map[string]struct{}, len(pk))
	for _, col := range pk {
		name := strings.TrimSpace(col)
		if name == "" {
			return nil, &ConfigError{Resource: resource, Field: "primary_key", Message: "primary key entries must not be empty"}
		}
		if _, dup := seen[name]; dup {
			return nil, &ConfigError{Resource: resource, Field: "primary_key", Message: fmt.Sprintf("duplicate primary key column %q", name)}
		}
		seen[name] = struct{}{}
		if len(columns) > 0 {
			if _, ok := known[name]; !ok {
				return nil, &ConfigError{
					Resource: resource,
					Field:    "primary_key",
					Message:  fmt.Sprintf("primary key column %q is not among the declared columns", name),
				}
			}
		}
		out = append(out, name)
	}
	return out, nil
}

func kindList() string {
	kinds := core.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
