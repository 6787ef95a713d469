package core

import "strings"

// QuoteIdent wraps an identifier in double quotes, doubling any embedded
// quote characters. Streaming engines treat quoted identifiers as
// case-sensitive, which keeps compiled names exact.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QualifiedName joins the non-empty parts with dots, quoting each one.
// QualifiedName("db", "public", "orders") -> "db"."public"."orders".
func QualifiedName(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(QuoteIdent(p))
	}
	return b.String()
}

// QuoteLiteral wraps a string value in single quotes, doubling embedded
// quotes, for WITH-clause values.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
