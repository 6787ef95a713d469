package materialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sluice/pkg/core"
)

// withClause renders the parameter set in insertion order:
// WITH ('topic' = 'orders', 'value.format' = 'json'). Empty sets render
// nothing so kinds without parameters stay clean.
func withClause(p *core.Params) string {
	if p.Len() == 0 {
		return ""
	}
	pairs := make([]string, 0, p.Len())
	for _, key := range p.Keys() {
		value, _ := p.Get(key)
		pairs = append(pairs, core.QuoteLiteral(key)+" = "+paramValue(value))
	}
	return "WITH (" + strings.Join(pairs, ", ") + ")"
}

// paramValue renders one WITH value: strings quoted, booleans and numbers
// bare, anything else stringified and quoted.
func paramValue(v any) string {
	switch val := v.(type) {
	case string:
		return core.QuoteLiteral(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case nil:
		return "NULL"
	default:
		return core.QuoteLiteral(fmt.Sprintf("%v", val))
	}
}

// columnsClause renders the explicit column list, or "" without one.
func columnsClause(cols []core.Column) string {
	if len(cols) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		col := core.QuoteIdent(c.Name) + " " + c.Type
		if c.NotNull {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// primaryKeyClause renders PRIMARY KEY ("a", "b"), or "" without key columns.
func primaryKeyClause(pk []string) string {
	if len(pk) == 0 {
		return ""
	}
	quoted := make([]string, len(pk))
	for i, col := range pk {
		quoted[i] = core.QuoteIdent(col)
	}
	return "PRIMARY KEY (" + strings.Join(quoted, ", ") + ")"
}

// effectiveParams returns the parameters to render, folding an out-of-band
// store binding in as the trailing 'store' parameter.
func effectiveParams(r *core.Resource) *core.Params {
	if r.Store == "" || r.Kind == core.KindEntity {
		return r.Params
	}
	p := r.Params.Clone()
	if p == nil {
		p = core.NewParams()
	}
	p.Set("store", r.Store)
	return p
}

// statement joins non-empty clauses with single spaces and terminates them.
func statement(clauses ...string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ") + ";"
}
