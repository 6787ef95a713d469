package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/normalize"
)

var testScope = core.Scope{Database: "db", Schema: "public"}

func managed(name string, kind core.Kind) *core.Resource {
	return &core.Resource{Name: name, Kind: kind, Trigger: core.TriggerManaged}
}

func source(ns, name string, kind core.Kind) *core.Resource {
	return &core.Resource{Name: name, Namespace: ns, Kind: kind, Trigger: core.TriggerOnDemand}
}

func mustCatalog(t *testing.T, resources ...*core.Resource) *Catalog {
	t.Helper()
	for i, r := range resources {
		r.Position = i
	}
	c, err := NewCatalog(resources, testScope)
	require.NoError(t, err)
	return c
}

func TestCatalog_ResolveManaged(t *testing.T) {
	c := mustCatalog(t,
		managed("orders", core.KindStream),
		managed("orders_by_minute", core.KindMaterializedView),
	)

	from, _ := c.Get("orders_by_minute")
	rr, err := c.Resolve(from, core.Reference{Token: "__t0__", Name: "orders"})
	require.NoError(t, err)

	assert.Equal(t, "orders", rr.Key)
	assert.Equal(t, `"db"."public"."orders"`, rr.Target)
	assert.Equal(t, "__t0__", rr.Token)
	assert.False(t, rr.IsSource)
}

func TestCatalog_ManagedShadowsSource(t *testing.T) {
	c := mustCatalog(t,
		managed("orders", core.KindStream),
		source("kafka", "orders", core.KindStream),
	)

	rr, err := c.Resolve(nil, core.Reference{Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "orders", rr.Key, "a bare name means the managed resource when one exists")

	rr, err = c.Resolve(nil, core.Reference{Name: "orders", Namespace: "kafka"})
	require.NoError(t, err)
	assert.Equal(t, "kafka.orders", rr.Key)
	assert.True(t, rr.IsSource)
}

func TestCatalog_ResolveUnqualifiedSource(t *testing.T) {
	c := mustCatalog(t, source("kafka", "pageviews", core.KindStream))

	rr, err := c.Resolve(nil, core.Reference{Name: "pageviews"})
	require.NoError(t, err)
	assert.Equal(t, "kafka.pageviews", rr.Key)
	assert.True(t, rr.IsSource)
}

func TestCatalog_AmbiguousAcrossNamespaces(t *testing.T) {
	c := mustCatalog(t,
		source("kafka_eu", "pageviews", core.KindStream),
		source("kafka_us", "pageviews", core.KindStream),
		managed("rollup", core.KindMaterializedView),
	)

	from, _ := c.Get("rollup")
	_, err := c.Resolve(from, core.Reference{Name: "pageviews"})

	var ambErr *AmbiguousReferenceError
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, "rollup", ambErr.Referrer)
	assert.Equal(t, []string{"kafka_eu.pageviews", "kafka_us.pageviews"}, ambErr.Candidates)
}

func TestCatalog_Unresolved(t *testing.T) {
	c := mustCatalog(t, managed("orders", core.KindStream))

	_, err := c.Resolve(nil, core.Reference{Name: "ordersx"})
	var unresErr *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresErr)
	assert.Equal(t, "ordersx", unresErr.Symbol)

	_, err = c.Resolve(nil, core.Reference{Name: "orders", Namespace: "kafka"})
	require.ErrorAs(t, err, &unresErr)
	assert.Equal(t, "kafka.orders", unresErr.Symbol, "qualified misses name the full symbol")
}

func TestCatalog_ResolveStore(t *testing.T) {
	store := managed("kafka_main", core.KindStore)
	entity := managed("pageviews_topic", core.KindEntity)
	entity.Store = "kafka_main"
	c := mustCatalog(t, store, entity)

	rr, err := c.ResolveStore(entity)
	require.NoError(t, err)
	assert.Equal(t, "kafka_main", rr.Key)
	assert.Equal(t, `"kafka_main"`, rr.Target, "stores substitute as bare quoted names")
}

func TestCatalog_StoreRefIgnoresNonStores(t *testing.T) {
	// A stream sharing the name does not satisfy a store binding.
	stream := managed("kafka_main", core.KindStream)
	entity := managed("pageviews_topic", core.KindEntity)
	entity.Store = "kafka_main"
	c := mustCatalog(t, stream, entity)

	_, err := c.ResolveStore(entity)
	var unresErr *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresErr)
	assert.Equal(t, "store", unresErr.Expected)
	assert.Contains(t, err.Error(), "no store")
}

func TestCatalog_OnDemandCannotDependOnOnDemand(t *testing.T) {
	st := source("kafka", "raw_store", core.KindStore)
	en := source("kafka", "raw_topic", core.KindEntity)
	en.Store = "raw_store"
	c := mustCatalog(t, st, en)

	_, err := c.ResolveStore(en)
	var cfgErr *normalize.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "kafka.raw_topic", cfgErr.Resource)
}

func TestNewCatalog_DuplicateManagedName(t *testing.T) {
	a := managed("orders", core.KindStream)
	a.Path = "models/orders.sql"
	b := managed("orders", core.KindTable)

	_, err := NewCatalog([]*core.Resource{a, b}, testScope)
	var cfgErr *normalize.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "models/orders.sql")
}

func TestNewCatalog_DuplicateSourceName(t *testing.T) {
	_, err := NewCatalog([]*core.Resource{
		source("kafka", "pageviews", core.KindStream),
		source("kafka", "pageviews", core.KindStream),
	}, testScope)

	var cfgErr *normalize.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "kafka")
}

func TestNewCatalog_StoreNamesAreGlobal(t *testing.T) {
	// A managed store and a source store cannot share a name even though
	// their catalog keys differ.
	_, err := NewCatalog([]*core.Resource{
		managed("kafka_main", core.KindStore),
		source("ext", "kafka_main", core.KindStore),
	}, testScope)

	var cfgErr *normalize.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "engine-global")
}

func TestCatalog_ResolveAllJoinsFailures(t *testing.T) {
	r := managed("rollup", core.KindMaterializedView)
	r.SQL = "SELECT * FROM __t0__, __t1__"
	r.Refs = []core.Reference{
		{Token: "__t0__", Name: "missing_a"},
		{Token: "__t1__", Name: "missing_b"},
	}
	c := mustCatalog(t, r)

	_, err := c.ResolveAll(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_a")
	assert.Contains(t, err.Error(), "missing_b", "every failure is reported, not just the first")

	var unresErr *UnresolvedReferenceError
	assert.True(t, errors.As(err, &unresErr))
}

func TestCatalog_ResolveAllIncludesStoreBinding(t *testing.T) {
	st := managed("kafka_main", core.KindStore)
	s := managed("orders", core.KindStream)
	s.Store = "kafka_main"
	c := mustCatalog(t, st, s)

	resolved, err := c.ResolveAll(s)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "kafka_main", resolved[0].Key)
}

func TestCatalog_Accessors(t *testing.T) {
	a := managed("orders", core.KindStream)
	b := source("kafka", "pageviews", core.KindStream)
	d := managed("rollup", core.KindMaterializedView)
	c := mustCatalog(t, a, b, d)

	assert.Equal(t, 3, c.Len())

	got, ok := c.Get("orders")
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = c.Get("kafka.pageviews")
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = c.Get("kafka.nope")
	assert.False(t, ok)

	names := func(rs []*core.Resource) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Key()
		}
		return out
	}
	assert.Equal(t, []string{"orders", "rollup"}, names(c.Managed()))
	assert.Equal(t, []string{"kafka.pageviews"}, names(c.Sources()))

	assert.Len(t, c.LookupSource("pageviews"), 1)
	assert.Len(t, c.LookupSource("kafka.pageviews"), 1)
	assert.Empty(t, c.LookupSource("orders"), "managed names are not sources")
}
