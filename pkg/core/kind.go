package core

// Kind identifies what a resource materializes into on the streaming engine.
type Kind string

// The closed set of resource kinds. There is no user-extensible registration:
// every kind the compiler understands is listed here.
const (
	KindTable            Kind = "table"
	KindMaterializedView Kind = "materialized_view"
	KindStream           Kind = "stream"
	KindChangelog        Kind = "changelog"
	KindStore            Kind = "store"
	KindEntity           Kind = "entity"
)

// Kinds returns all kinds in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindTable,
		KindMaterializedView,
		KindStream,
		KindChangelog,
		KindStore,
		KindEntity,
	}
}

// ParseKind maps a configuration string to a Kind.
// The second return is false for unknown values.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindTable, KindMaterializedView, KindStream, KindChangelog, KindStore, KindEntity:
		return Kind(s), true
	}
	return "", false
}

func (k Kind) String() string { return string(k) }

// Keyword returns the DDL keyword sequence for the kind.
func (k Kind) Keyword() string {
	switch k {
	case KindTable:
		return "TABLE"
	case KindMaterializedView:
		return "MATERIALIZED VIEW"
	case KindStream:
		return "STREAM"
	case KindChangelog:
		return "CHANGELOG"
	case KindStore:
		return "STORE"
	case KindEntity:
		return "ENTITY"
	}
	return ""
}

// IsRelation reports whether the kind is a queryable relation
// (as opposed to platform infrastructure like stores and entities).
func (k Kind) IsRelation() bool {
	switch k {
	case KindTable, KindMaterializedView, KindStream, KindChangelog:
		return true
	}
	return false
}

// AllowsQuery reports whether a defining query body is structurally valid.
// Stores and entities are pure DDL objects and never carry one.
func (k Kind) AllowsQuery() bool { return k.IsRelation() }

// RequiresQuery reports whether the kind cannot exist without a defining query.
func (k Kind) RequiresQuery() bool { return k == KindMaterializedView }

// AllowsColumns reports whether an explicit column list is structurally valid.
// Materialized views always take their shape from the query.
func (k Kind) AllowsColumns() bool {
	switch k {
	case KindTable, KindStream, KindChangelog:
		return true
	}
	return false
}

// AllowsPrimaryKey reports whether the kind supports update semantics keyed
// by a primary key. Changelogs require one; tables may declare one.
func (k Kind) AllowsPrimaryKey() bool {
	return k == KindTable || k == KindChangelog
}

// RequiresPrimaryKey reports whether the kind is meaningless without a key.
func (k Kind) RequiresPrimaryKey() bool { return k == KindChangelog }
