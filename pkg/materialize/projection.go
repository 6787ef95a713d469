package materialize

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// projectionItem is one entry of a query's top-level SELECT list.
type projectionItem struct {
	// Name is the output column name when it could be determined.
	Name string
	// Named is false for bare expressions without an alias; those entries
	// still count for arity but skip the name comparison.
	Named bool
}

// selectProjection scans the top-level SELECT list of a query. The scan is
// structural only: it tracks parens, quotes and keywords, never grammar.
// ok is false when the list cannot be determined confidently (star
// projections, missing SELECT), in which case no schema check happens and
// the engine has the final word.
func selectProjection(sql string) ([]projectionItem, bool) {
	list, ok := topLevelSelectList(sql)
	if !ok {
		return nil, false
	}

	rawItems := splitTopLevel(list, ',')
	if len(rawItems) == 0 {
		return nil, false
	}

	items := make([]projectionItem, 0, len(rawItems))
	for _, raw := range rawItems {
		item := strings.TrimSpace(raw)
		if item == "" {
			return nil, false
		}
		if item == "*" || strings.HasSuffix(item, ".*") {
			return nil, false
		}
		items = append(items, nameOf(item))
	}
	return items, true
}

// topLevelSelectList extracts the text between the first top-level SELECT
// and its FROM (or end of input), in a single pass.
func topLevelSelectList(sql string) (string, bool) {
	depth := 0
	var inSingle, inDouble bool
	start, end := -1, len(sql)

scan:
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth != 0 {
				continue
			}
			if start < 0 {
				if matchKeyword(sql, i, "SELECT") {
					start = i + len("SELECT")
					i = start - 1
				}
			} else if matchKeyword(sql, i, "FROM") {
				end = i
				break scan
			}
		}
	}
	if start < 0 {
		return "", false
	}

	list := strings.TrimSpace(sql[start:end])
	for _, prefix := range []string{"DISTINCT", "ALL"} {
		if matchKeyword(list, 0, prefix) {
			list = strings.TrimSpace(list[len(prefix):])
		}
	}
	if list == "" {
		return "", false
	}
	return list, true
}

// splitTopLevel splits s on sep occurrences outside parens and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var inSingle, inDouble bool
	last := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	parts = append(parts, s[last:])
	return parts
}

// nameOf derives the output name of one SELECT item.
func nameOf(item string) projectionItem {
	// Trailing "AS alias" (or bare alias) wins.
	if alias, ok := trailingAlias(item); ok {
		return projectionItem{Name: unquoteIdent(alias), Named: true}
	}

	// A plain, possibly qualified, identifier names itself.
	if isIdentifierPath(item) {
		parts := splitTopLevel(item, '.')
		return projectionItem{Name: unquoteIdent(strings.TrimSpace(parts[len(parts)-1])), Named: true}
	}

	return projectionItem{}
}

// trailingAlias finds an "expr AS alias" tail outside parens and quotes.
func trailingAlias(item string) (string, bool) {
	depth := 0
	var inSingle, inDouble bool
	for i := 0; i < len(item); i++ {
		c := item[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && matchKeyword(item, i, "AS") {
				alias := strings.TrimSpace(item[i+2:])
				if alias != "" && isIdentifierToken(alias) {
					return alias, true
				}
			}
		}
	}
	return "", false
}

// matchKeyword reports a case-insensitive keyword at position i with word
// boundaries on both sides.
func matchKeyword(s string, i int, kw string) bool {
	if i+len(kw) > len(s) {
		return false
	}
	if !strings.EqualFold(s[i:i+len(kw)], kw) {
		return false
	}
	if i > 0 && isWordChar(s[i-1]) {
		return false
	}
	if i+len(kw) < len(s) && isWordChar(s[i+len(kw)]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isIdentifierPath accepts a.b.c chains of plain or quoted identifiers.
func isIdentifierPath(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !isIdentifierToken(strings.TrimSpace(part)) {
			return false
		}
	}
	return true
}

// isIdentifierToken accepts one plain or double-quoted identifier.
func isIdentifierToken(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '"' {
		return len(s) > 2 && s[len(s)-1] == '"'
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isWordChar(s[i]) {
			return false
		}
	}
	return true
}

func unquoteIdent(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}

// validateDeclaredColumns compares declared columns against the query's
// top-level projection, positionally. Indeterminate projections pass; the
// engine validates those at execution.
func validateDeclaredColumns(r *core.Resource) error {
	if len(r.Columns) == 0 || !r.HasQuery() {
		return nil
	}
	items, ok := selectProjection(r.SQL)
	if !ok {
		return nil
	}

	declared := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		declared[i] = c.Name
	}
	actual := make([]string, len(items))
	for i, item := range items {
		actual[i] = item.Name
	}

	if len(items) != len(declared) {
		return &SchemaMismatchError{
			Resource: r.Name,
			Declared: declared,
			Actual:   actual,
			Message:  fmt.Sprintf("query returns %d columns but %d are declared", len(items), len(declared)),
		}
	}
	for i, item := range items {
		if item.Named && item.Name != declared[i] {
			return &SchemaMismatchError{
				Resource: r.Name,
				Declared: declared,
				Actual:   actual,
				Message:  fmt.Sprintf("column %d is %q in the query but declared as %q", i+1, item.Name, declared[i]),
			}
		}
	}
	return nil
}
