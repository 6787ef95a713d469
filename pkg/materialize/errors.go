package materialize

import (
	"fmt"
	"strings"
)

// UnsupportedCombinationError reports a resource whose kind cannot carry one
// of its declared features: a primary key on an append-only kind, a query
// body on a pure DDL object, or a kind with no builder at all.
type UnsupportedCombinationError struct {
	Resource string
	Kind     string
	Feature  string
	Message  string
}

func (e *UnsupportedCombinationError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("resource %q: kind %q does not support %s: %s", e.Resource, e.Kind, e.Feature, e.Message)
	}
	return fmt.Sprintf("kind %q does not support %s: %s", e.Kind, e.Feature, e.Message)
}

// SchemaMismatchError reports declared columns that contradict the shape of
// the defining query.
type SchemaMismatchError struct {
	Resource string
	Declared []string
	Actual   []string
	Message  string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("resource %q: declared columns do not match the query: %s", e.Resource, e.Message)
	if len(e.Declared) > 0 {
		msg += fmt.Sprintf(" (declared: %s", strings.Join(e.Declared, ", "))
		if len(e.Actual) > 0 {
			msg += fmt.Sprintf("; query: %s", strings.Join(e.Actual, ", "))
		}
		msg += ")"
	}
	return msg
}
