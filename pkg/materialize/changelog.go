package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// changelogBuilder renders keyed change streams: every record is an upsert
// or delete against the primary key.
type changelogBuilder struct{}

func init() { register(changelogBuilder{}) }

func (changelogBuilder) Kind() core.Kind { return core.KindChangelog }

func (changelogBuilder) Validate(r *core.Resource) error {
	if len(r.PrimaryKey) == 0 {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "creation without a primary key",
			Message:  "changelogs key their updates; declare primary_key",
		}
	}
	if err := requireShape(r); err != nil {
		return err
	}
	return validateDeclaredColumns(r)
}

func (changelogBuilder) Render(r *core.Resource, scope core.Scope) ([]string, error) {
	stmt := statement(
		"CREATE OR REPLACE CHANGELOG",
		r.EngineName(scope),
		columnsClause(r.Columns),
		primaryKeyClause(r.PrimaryKey),
		withClause(effectiveParams(r)),
		asQuery(r),
	)
	return []string{stmt}, nil
}
