package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sluice/internal/plan"
	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/resolve"
)

var testScope = core.Scope{Database: "demo", Schema: "public"}

func storeParams() *core.Params {
	p := core.NewParams()
	p.Set("type", "kafka")
	p.Set("uris", "kafka://broker:9092")
	return p
}

// buildTestManifest compiles a small project: one source store, one source
// stream, and one managed stream reading from it.
func buildTestManifest(t *testing.T) *Manifest {
	t.Helper()

	store := &core.Resource{
		Name: "kafka_main", Namespace: "kafka",
		Kind: core.KindStore, Trigger: core.TriggerOnDemand,
		Params: storeParams(), Position: 0,
	}
	raw := &core.Resource{
		Name: "pageviews_raw", Namespace: "kafka",
		Kind: core.KindStream, Trigger: core.TriggerOnDemand,
		Store: "kafka_main",
		Columns: []core.Column{
			{Name: "viewtime", Type: "BIGINT", NotNull: true},
			{Name: "url", Type: "VARCHAR"},
		},
		Params: core.NewParams(), Position: 1, Path: "sources/kafka.yaml",
	}
	views := &core.Resource{
		Name: "page_views",
		Kind: core.KindStream, Trigger: core.TriggerManaged,
		SQL:    "SELECT * FROM __sluice_ref_0__",
		Refs:   []core.Reference{{Token: "__sluice_ref_0__", Name: "pageviews_raw", Namespace: "kafka"}},
		Params: core.NewParams(), Position: 2, Path: "models/page_views.sql",
	}

	catalog, err := resolve.NewCatalog([]*core.Resource{store, raw, views}, testScope)
	require.NoError(t, err)

	planner := plan.New(catalog, nil)
	managed, err := planner.Plan()
	require.NoError(t, err)
	sources, err := planner.CreateAllUnmanaged()
	require.NoError(t, err)

	return Build("demo_project", "dev", testScope, catalog, managed, sources)
}

func docsByKey(m *Manifest) map[string]ResourceDoc {
	out := make(map[string]ResourceDoc, len(m.Resources))
	for _, doc := range m.Resources {
		out[doc.Key] = doc
	}
	return out
}

func TestBuild(t *testing.T) {
	m := buildTestManifest(t)

	assert.Equal(t, "demo_project", m.Project)
	assert.Equal(t, "dev", m.Target)
	assert.False(t, m.GeneratedAt.IsZero())

	assert.Equal(t, 1, m.Stats.Managed)
	assert.Equal(t, 2, m.Stats.Sources)
	assert.Equal(t, 2, m.Stats.Kinds["stream"])
	assert.Equal(t, 1, m.Stats.Kinds["store"])

	docs := docsByKey(m)
	require.Len(t, docs, 3)

	views := docs["page_views"]
	assert.Equal(t, "managed", views.Class)
	assert.Contains(t, views.DependsOn, "kafka.pageviews_raw")
	require.NotEmpty(t, views.Statements)
	assert.Contains(t, views.Statements[0], `"demo"."public"."page_views"`)
	assert.Contains(t, views.Statements[0], `"demo"."public"."pageviews_raw"`)

	raw := docs["kafka.pageviews_raw"]
	assert.Equal(t, "source", raw.Class)
	assert.Contains(t, raw.ReferencedBy, "page_views")
	require.Len(t, raw.Columns, 2)
	assert.True(t, raw.Columns[0].NotNull)
	require.NotEmpty(t, raw.Statements, "source statements come from the on-demand plan")

	assert.Equal(t, [][]string{{"page_views"}}, m.Waves)
	assert.Contains(t, m.Edges, Edge{From: "kafka.pageviews_raw", To: "page_views"})
}

func TestManifest_WriteFiles(t *testing.T) {
	m := buildTestManifest(t)
	dir := filepath.Join(t.TempDir(), "site")

	require.NoError(t, m.WriteFiles(dir))

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "demo_project", decoded.Project)
	assert.Len(t, decoded.Resources, 3)

	html, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "demo_project")
	assert.Contains(t, page, "page_views")
	assert.Contains(t, page, `id="kafka-pageviews_raw"`)
	assert.Contains(t, page, "NOT NULL")
}

func TestServer_Routes(t *testing.T) {
	m := buildTestManifest(t)
	srv := httptest.NewServer(NewServer(m, 0, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp2, err := http.Get(srv.URL + "/manifest.json")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var decoded Manifest
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&decoded))
	assert.Equal(t, "dev", decoded.Target)
}
