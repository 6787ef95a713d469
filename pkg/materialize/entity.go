package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// entityBuilder renders storage objects (topics, delta tables) inside a
// store. Like stores, entities are engine-global names.
type entityBuilder struct{}

func init() { register(entityBuilder{}) }

func (entityBuilder) Kind() core.Kind { return core.KindEntity }

func (entityBuilder) Validate(r *core.Resource) error {
	if err := rejectQuery(r); err != nil {
		return err
	}
	if err := rejectColumns(r); err != nil {
		return err
	}
	if err := rejectPrimaryKey(r); err != nil {
		return err
	}
	if r.Store == "" {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "creation outside a store",
			Message:  "entities live in a store; declare one",
		}
	}
	return nil
}

func (entityBuilder) Render(r *core.Resource, _ core.Scope) ([]string, error) {
	stmt := statement(
		"CREATE OR REPLACE ENTITY",
		core.QuoteIdent(r.Name),
		"IN STORE",
		core.QuoteIdent(r.Store),
		withClause(r.Params),
	)
	return []string{stmt}, nil
}
