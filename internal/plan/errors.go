package plan

import (
	"fmt"
	"strings"
)

// CycleError reports that the managed dependency graph cannot be ordered.
// Cycle holds the minimal offending loop; a single entry means a resource
// references itself.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "dependency cycle detected"
	}
	return "dependency cycle detected: " + strings.Join(e.Cycle, " -> ") + " -> " + e.Cycle[0]
}

// NotFoundError reports an on-demand creation request for a name that does
// not identify a source resource.
type NotFoundError struct {
	Name string
	// Managed is set when the name exists in the project but identifies a
	// managed resource, which the build owns.
	Managed bool
}

func (e *NotFoundError) Error() string {
	if e.Managed {
		return fmt.Sprintf("%q is a managed resource; on-demand creation only applies to sources", e.Name)
	}
	return fmt.Sprintf("no source resource named %q", e.Name)
}
