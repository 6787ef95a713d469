package core

// Trigger describes when a resource is created on the engine.
type Trigger string

const (
	// TriggerManaged resources are created by every build, in dependency order.
	TriggerManaged Trigger = "managed"
	// TriggerOnDemand resources (sources) are created only when an operator
	// explicitly asks for them.
	TriggerOnDemand Trigger = "on_demand"
)

// Column is one entry of an explicit column list.
type Column struct {
	// Name is the column identifier, quoted verbatim in DDL.
	Name string
	// Type is the engine type expression (VARCHAR, TIMESTAMP, STRUCT<...>, ...),
	// passed through untouched.
	Type string
	// NotNull adds a NOT NULL constraint when set.
	NotNull bool
}

// Resource is a fully normalized compilation unit. Builders and the planner
// operate on this type only; raw file shapes never travel past the normalizer.
type Resource struct {
	// Name is the bare resource name, unique within its namespace.
	Name string
	// Namespace groups on-demand (source) resources; empty for managed
	// resources, which live in the build target's scope.
	Namespace string
	// Database and Schema override the target scope when set.
	Database string
	Schema   string

	Kind    Kind
	Trigger Trigger

	// Columns is the explicit column list, nil when the shape comes from the query.
	Columns []Column
	// PrimaryKey lists key column names for kinds with update semantics.
	PrimaryKey []string
	// Params are the engine parameters rendered into the WITH clause,
	// already key-normalized, in insertion order.
	Params *Params
	// Store is the symbolic name of the store this resource is bound to.
	// Required for entities; optional for relations (rendered as a parameter).
	Store string

	// SQL is the defining query body with reference placeholders still in
	// place; empty when the resource has no query.
	SQL string
	// Refs are the symbolic references collected from the query body.
	Refs []Reference

	// Path is the originating file, for diagnostics.
	Path string
	// Position is the declaration index across the whole project; it fixes
	// the order of on-demand bulk creation.
	Position int
}

// HasQuery reports whether the resource carries a defining query body.
func (r *Resource) HasQuery() bool { return r.SQL != "" }

// IsManaged reports whether the resource participates in the build plan.
func (r *Resource) IsManaged() bool { return r.Trigger != TriggerOnDemand }

// Key returns the catalog identity: the bare name for managed resources,
// namespace-qualified for sources.
func (r *Resource) Key() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// QualifiedName renders the engine-side name, falling back to the given
// target scope where the resource declares no override.
func (r *Resource) QualifiedName(defaultDB, defaultSchema string) string {
	db, schema := r.Database, r.Schema
	if db == "" {
		db = defaultDB
	}
	if schema == "" {
		schema = defaultSchema
	}
	return QualifiedName(db, schema, r.Name)
}

// EngineName renders the name the resource goes by on the engine: scoped and
// qualified for relations, bare for engine-global objects (stores, entities).
// This is the exact text substituted for references to the resource.
func (r *Resource) EngineName(scope Scope) string {
	if r.Kind.IsRelation() {
		return r.QualifiedName(scope.Database, scope.Schema)
	}
	return QuoteIdent(r.Name)
}
