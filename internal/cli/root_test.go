package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// The scaffolded project targets the pgwire engine.
	_ "github.com/leapstack-labs/sluice/pkg/engines/pgwire"
)

// scaffoldProject initializes the starter project into a temp directory and
// returns its path.
func scaffoldProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := execute(t, "init", dir)
	require.NoError(t, err)
	return dir
}

// execute runs the CLI with the given arguments and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandMetadata(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "sluice", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}
	for _, name := range []string{
		"version", "compile", "apply", "source", "list", "dag",
		"shell", "history", "docs", "init", "completion",
	} {
		assert.True(t, subcommands[name], "subcommand %q should be registered", name)
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "sluice 0.1.0")
}

func TestCompileScaffoldedProject(t *testing.T) {
	dir := scaffoldProject(t)

	out, err := execute(t, "--project-dir", dir, "compile", "--json")
	require.NoError(t, err)

	var doc struct {
		Steps []struct {
			Key        string   `json:"key"`
			Kind       string   `json:"kind"`
			Statements []string `json:"statements"`
		} `json:"steps"`
		Waves [][]string `json:"waves"`
		Edges []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	require.Len(t, doc.Steps, 2)
	assert.Equal(t, "page_views", doc.Steps[0].Key)
	assert.Equal(t, "stream", doc.Steps[0].Kind)
	assert.Equal(t, "views_per_page", doc.Steps[1].Key)
	assert.Equal(t, "materialized_view", doc.Steps[1].Kind)
	assert.Equal(t, [][]string{{"page_views"}, {"views_per_page"}}, doc.Waves)

	require.Len(t, doc.Steps[0].Statements, 1)
	stmt := doc.Steps[0].Statements[0]
	assert.Contains(t, stmt, `CREATE OR REPLACE STREAM "demo"."public"."page_views"`)
	assert.Contains(t, stmt, `"demo"."public"."pageviews_raw"`)

	edges := make(map[[2]string]bool)
	for _, e := range doc.Edges {
		edges[[2]string{e.From, e.To}] = true
	}
	assert.True(t, edges[[2]string{"kafka.pageviews_raw", "page_views"}])
	assert.True(t, edges[[2]string{"page_views", "views_per_page"}])
}

func TestCompileHonorsTargetProfile(t *testing.T) {
	dir := scaffoldProject(t)

	out, err := execute(t, "--project-dir", dir, "--target", "prod", "compile", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `\"demo_prod\".\"public\".\"page_views\"`)
}

func TestListScaffoldedProject(t *testing.T) {
	dir := scaffoldProject(t)

	out, err := execute(t, "--project-dir", dir, "list", "--json")
	require.NoError(t, err)

	var listings []struct {
		Key        string `json:"key"`
		Kind       string `json:"kind"`
		Managed    bool   `json:"managed"`
		EngineName string `json:"engine_name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listings))
	require.Len(t, listings, 4)

	byKey := make(map[string]int)
	for i, l := range listings {
		byKey[l.Key] = i
	}
	require.Contains(t, byKey, "kafka.kafka_main")
	require.Contains(t, byKey, "kafka.pageviews_raw")
	require.Contains(t, byKey, "page_views")
	require.Contains(t, byKey, "views_per_page")

	store := listings[byKey["kafka.kafka_main"]]
	assert.Equal(t, "store", store.Kind)
	assert.False(t, store.Managed)
	assert.Equal(t, `"kafka_main"`, store.EngineName)

	model := listings[byKey["page_views"]]
	assert.True(t, model.Managed)
	assert.Equal(t, `"demo"."public"."page_views"`, model.EngineName)
}

func TestCompileEmptyDirectory(t *testing.T) {
	empty := t.TempDir()

	out, err := execute(t, "--project-dir", empty, "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "0 resources")
}

func TestCompileReportsUnresolvedReference(t *testing.T) {
	dir := scaffoldProject(t)
	broken := "/*---\nkind: stream\n---*/\nSELECT * FROM {{ source(\"kafka\", \"missing\") }}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "broken.sql"), []byte(broken), 0o600))

	_, err := execute(t, "--project-dir", dir, "compile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.missing")
}
