package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// storeBuilder renders connection objects for external systems (Kafka,
// Kinesis, ...). Stores are engine-global: their names are never scoped to a
// database or schema.
type storeBuilder struct{}

func init() { register(storeBuilder{}) }

func (storeBuilder) Kind() core.Kind { return core.KindStore }

func (storeBuilder) Validate(r *core.Resource) error {
	if err := rejectQuery(r); err != nil {
		return err
	}
	if err := rejectColumns(r); err != nil {
		return err
	}
	return rejectPrimaryKey(r)
}

func (storeBuilder) Render(r *core.Resource, _ core.Scope) ([]string, error) {
	stmt := statement(
		"CREATE OR REPLACE STORE",
		core.QuoteIdent(r.Name),
		withClause(r.Params),
	)
	return []string{stmt}, nil
}
