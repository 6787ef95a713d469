package materialize

import "github.com/leapstack-labs/sluice/pkg/core"

// The normalizer rejects these shapes long before a builder runs; the checks
// repeat here so resources constructed by hand fail loudly instead of
// rendering broken DDL.

func rejectQuery(r *core.Resource) error {
	if r.HasQuery() {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "a defining query",
			Message:  "this kind is created from configuration only",
		}
	}
	return nil
}

func rejectColumns(r *core.Resource) error {
	if len(r.Columns) > 0 {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "an explicit column list",
			Message:  "this kind does not declare a relational shape",
		}
	}
	return nil
}

func rejectPrimaryKey(r *core.Resource) error {
	if len(r.PrimaryKey) > 0 {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "a primary key",
			Message:  "only kinds with update semantics take a key",
		}
	}
	return nil
}

// requireShape enforces that a relation has either declared columns or a
// query to take its shape from.
func requireShape(r *core.Resource) error {
	if !r.HasQuery() && len(r.Columns) == 0 {
		return &UnsupportedCombinationError{
			Resource: r.Name,
			Kind:     string(r.Kind),
			Feature:  "creation without a shape",
			Message:  "declare columns or provide a defining query",
		}
	}
	return nil
}

// asQuery renders the trailing AS clause, or "" without a query body.
func asQuery(r *core.Resource) string {
	if !r.HasQuery() {
		return ""
	}
	return "AS " + r.SQL
}
