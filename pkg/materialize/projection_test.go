package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectProjection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		sql   string
		want  []string // expected output names; "" marks an unnamed expression
		named []bool
		ok    bool
	}{
		{
			name:  "plain identifiers",
			sql:   "SELECT a, b, c FROM t",
			want:  []string{"a", "b", "c"},
			named: []bool{true, true, true},
			ok:    true,
		},
		{
			name:  "qualified and aliased",
			sql:   "SELECT t.order_id, sum(total) AS revenue FROM t GROUP BY 1",
			want:  []string{"order_id", "revenue"},
			named: []bool{true, true},
			ok:    true,
		},
		{
			name:  "expression without alias counts for arity only",
			sql:   "SELECT a, count(*) FROM t GROUP BY a",
			want:  []string{"a", ""},
			named: []bool{true, false},
			ok:    true,
		},
		{
			name: "star is indeterminate",
			sql:  "SELECT * FROM t",
			ok:   false,
		},
		{
			name: "qualified star is indeterminate",
			sql:  "SELECT t.*, a FROM t",
			ok:   false,
		},
		{
			name:  "distinct prefix is stripped",
			sql:   "SELECT DISTINCT city FROM t",
			want:  []string{"city"},
			named: []bool{true},
			ok:    true,
		},
		{
			name:  "function commas stay inside parens",
			sql:   "SELECT coalesce(a, b, 'x') AS v, d FROM t",
			want:  []string{"v", "d"},
			named: []bool{true, true},
			ok:    true,
		},
		{
			name:  "scalar subquery in the list",
			sql:   "SELECT (SELECT max(x) FROM y) AS peak, a FROM z",
			want:  []string{"peak", "a"},
			named: []bool{true, true},
			ok:    true,
		},
		{
			name:  "cte keeps outer projection",
			sql:   "WITH recent AS (SELECT id, ts FROM raw) SELECT id FROM recent",
			want:  []string{"id"},
			named: []bool{true},
			ok:    true,
		},
		{
			name:  "cast alias wins over inner as",
			sql:   "SELECT CAST(amount AS DECIMAL) AS amount_dec FROM t",
			want:  []string{"amount_dec"},
			named: []bool{true},
			ok:    true,
		},
		{
			name:  "quoted alias",
			sql:   `SELECT a AS "Order Count" FROM t`,
			want:  []string{"Order Count"},
			named: []bool{true},
			ok:    true,
		},
		{
			name:  "no from clause",
			sql:   "SELECT 1 AS one",
			want:  []string{"one"},
			named: []bool{true},
			ok:    true,
		},
		{
			name: "not a select",
			sql:  "SHOW STREAMS",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items, ok := selectProjection(tt.sql)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.Len(t, items, len(tt.want))
			for i := range items {
				assert.Equal(t, tt.want[i], items[i].Name, "item %d name", i)
				assert.Equal(t, tt.named[i], items[i].Named, "item %d named", i)
			}
		})
	}
}

func TestSelectProjection_StringLiteralsDoNotConfuse(t *testing.T) {
	items, ok := selectProjection(`SELECT 'from, where' AS label, b FROM t`)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, "label", items[0].Name)
	assert.Equal(t, "b", items[1].Name)
}
