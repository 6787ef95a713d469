package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// materializedViewBuilder renders continuously maintained views. The engine
// derives the shape from the query, so no column list ever appears.
type materializedViewBuilder struct{}

func init() { register(materializedViewBuilder{}) }

func (materializedViewBuilder) Kind() core.Kind { return core.KindMaterializedView }

func (materializedViewBuilder) Validate(r *core.Resource) error {
	if err := rejectColumns(r); err != nil {
		return err
	}
	if err := rejectPrimaryKey(r); err != nil {
		return err
	}
	if !r.HasQuery() {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "creation without a query",
			Message:  "materialized views exist only as a maintained query result",
		}
	}
	return nil
}

func (materializedViewBuilder) Render(r *core.Resource, scope core.Scope) ([]string, error) {
	stmt := statement(
		"CREATE OR REPLACE MATERIALIZED VIEW",
		r.EngineName(scope),
		withClause(effectiveParams(r)),
		asQuery(r),
	)
	return []string{stmt}, nil
}
