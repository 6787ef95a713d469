package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// tableBuilder renders tables. Tables are the most permissive kind: shape
// from columns or query, optional primary key for update semantics.
type tableBuilder struct{}

func init() { register(tableBuilder{}) }

func (tableBuilder) Kind() core.Kind { return core.KindTable }

func (tableBuilder) Validate(r *core.Resource) error {
	if err := requireShape(r); err != nil {
		return err
	}
	return validateDeclaredColumns(r)
}

func (tableBuilder) Render(r *core.Resource, scope core.Scope) ([]string, error) {
	stmt := statement(
		"CREATE OR REPLACE TABLE",
		r.EngineName(scope),
		columnsClause(r.Columns),
		primaryKeyClause(r.PrimaryKey),
		withClause(effectiveParams(r)),
		asQuery(r),
	)
	return []string{stmt}, nil
}
