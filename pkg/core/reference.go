package core

// Reference is a symbolic dependency collected from a resource definition
// before resolution: either a ref()/source() call found in the query body or
// the store binding of an entity.
type Reference struct {
	// Token is the opaque placeholder occupying the reference's position in
	// the query body; empty for references that do not appear in SQL text
	// (store bindings).
	Token string
	// Name is the referenced symbol.
	Name string
	// Namespace is set for namespace-qualified source references and empty
	// for bare references.
	Namespace string
}

// ResolvedReference is a Reference bound to a concrete catalog entry.
type ResolvedReference struct {
	Reference
	// Key is the catalog identity of the target resource.
	Key string
	// Target is the fully qualified engine-side name substituted into SQL.
	Target string
	// IsSource is true when the target is an on-demand (source) resource;
	// such references are existence preconditions, not ordering edges.
	IsSource bool
}

// Edge is one dependency relation in the resolved graph: From must exist
// before To is created.
type Edge struct {
	From string
	To   string
}
