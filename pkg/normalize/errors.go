package normalize

import "fmt"

// ConfigError reports an invalid resource configuration. It is raised eagerly
// during normalization; a unit that produced one never reaches a builder.
type ConfigError struct {
	// Resource is the resource name, when known.
	Resource string
	// Field is the offending configuration field, when one can be named.
	Field string
	// Message describes the violation.
	Message string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Resource != "" && e.Field != "":
		return fmt.Sprintf("resource %q: invalid %q: %s", e.Resource, e.Field, e.Message)
	case e.Resource != "":
		return fmt.Sprintf("resource %q: %s", e.Resource, e.Message)
	case e.Field != "":
		return fmt.Sprintf("invalid %q: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}
