package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// streamBuilder renders append-only event streams.
type streamBuilder struct{}

func init() { register(streamBuilder{}) }

func (streamBuilder) Kind() core.Kind { return core.KindStream }

func (streamBuilder) Validate(r *core.Resource) error {
	if err := rejectPrimaryKey(r); err != nil {
		return err
	}
	if err := requireShape(r); err != nil {
		return err
	}
	return validateDeclaredColumns(r)
}

func (streamBuilder) Render(r *core.Resource, scope core.Scope) ([]string, error) {
	stmt := statement(
		"CREATE OR REPLACE STREAM",
		r.EngineName(scope),
		columnsClause(r.Columns),
		withClause(effectiveParams(r)),
		asQuery(r),
	)
	return []string{stmt}, nil
}
