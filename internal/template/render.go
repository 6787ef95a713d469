package template

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// placeholderFormat shapes the opaque tokens left in SQL where ref()/source()
// calls appeared. The token must never collide with real SQL text; the
// planner replaces every one before a statement leaves the compiler.
const placeholderFormat = "__sluice_ref_%d__"

// Rendered is the outcome of expanding one SQL body.
type Rendered struct {
	// SQL is the body with expressions evaluated; reference positions hold
	// placeholder tokens.
	SQL string
	// Refs are the collected references, in order of appearance.
	Refs []core.Reference
}

// refCollector assigns placeholder tokens to ref/source calls during a render.
type refCollector struct {
	refs []core.Reference
}

func (c *refCollector) add(name, namespace string) string {
	token := fmt.Sprintf(placeholderFormat, len(c.refs))
	c.refs = append(c.refs, core.Reference{
		Token:     token,
		Name:      name,
		Namespace: namespace,
	})
	return token
}

// refBuiltin returns the Starlark ref(name) builtin: a bare reference to
// another resource in the project.
func refBuiltin(c *refCollector) *starlark.Builtin {
	return starlark.NewBuiltin("ref", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("ref: name must not be empty")
		}
		return starlark.String(c.add(name, "")), nil
	})
}

// sourceBuiltin returns the Starlark source(namespace, name) builtin: a
// reference into a declared source namespace.
func sourceBuiltin(c *refCollector) *starlark.Builtin {
	return starlark.NewBuiltin("source", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var namespace, name string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "namespace", &namespace, "name", &name); err != nil {
			return nil, err
		}
		if namespace == "" || name == "" {
			return nil, fmt.Errorf("source: namespace and name must not be empty")
		}
		return starlark.String(c.add(name, namespace)), nil
	})
}

// Extract evaluates every {{ expr }} in input and returns the expanded body
// together with the references the expressions declared.
func Extract(input, file string, ctx *Context) (*Rendered, error) {
	tokens, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}

	collector := &refCollector{}
	globals, err := ctx.globals(collector)
	if err != nil {
		return nil, err
	}

	thread := &starlark.Thread{
		Name: file,
		Print: func(_ *starlark.Thread, _ string) {
			// Expression evaluation should not print.
		},
	}

	var b strings.Builder
	for _, tok := range tokens {
		switch tok.Type {
		case TokenText:
			b.WriteString(tok.Value)
		case TokenExpr:
			value, err := starlark.Eval(thread, file, tok.Value, globals) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
			if err != nil {
				return nil, WrapRenderError(tok.Pos, fmt.Sprintf("evaluating %q", tok.Value), err)
			}
			b.WriteString(stringify(value))
		}
	}

	return &Rendered{SQL: b.String(), Refs: collector.refs}, nil
}

// Substitute replaces placeholder tokens with their resolved targets.
// Tokens are unique and non-overlapping, so replacement order is irrelevant.
func Substitute(sql string, replacements map[string]string) string {
	for token, target := range replacements {
		sql = strings.ReplaceAll(sql, token, target)
	}
	return sql
}

// stringify converts an expression result into SQL text.
func stringify(v starlark.Value) string {
	switch val := v.(type) {
	case starlark.String:
		return string(val)
	case starlark.NoneType:
		return ""
	default:
		return v.String()
	}
}
