package resolve

import (
	"fmt"
	"strings"
)

// UnresolvedReferenceError reports a reference to a name no catalog entry
// answers to.
type UnresolvedReferenceError struct {
	// Referrer is the catalog key of the referencing resource, empty when the
	// reference came from an operator command rather than a definition.
	Referrer string
	// Symbol is the referenced name as written, namespace-qualified when the
	// reference was.
	Symbol string
	// Expected narrows the object class that was looked for ("store" for
	// store bindings); empty means any resource.
	Expected string
}

func (e *UnresolvedReferenceError) Error() string {
	what := e.Expected
	if what == "" {
		what = "resource"
	}
	msg := fmt.Sprintf("unresolved reference %q: no %s by that name", e.Symbol, what)
	if e.Referrer != "" {
		msg = e.Referrer + ": " + msg
	}
	return msg
}

// AmbiguousReferenceError reports a bare reference that matches source
// resources in more than one namespace.
type AmbiguousReferenceError struct {
	// Referrer is the catalog key of the referencing resource, empty when the
	// reference came from an operator command.
	Referrer string
	// Symbol is the bare name as written.
	Symbol string
	// Candidates holds the catalog keys that match, sorted.
	Candidates []string
}

func (e *AmbiguousReferenceError) Error() string {
	msg := fmt.Sprintf("ambiguous reference %q: matches %s; qualify the namespace",
		e.Symbol, strings.Join(e.Candidates, ", "))
	if e.Referrer != "" {
		msg = e.Referrer + ": " + msg
	}
	return msg
}
