package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sluice/pkg/core"
)

func validChangelog() *RawResource {
	p := core.NewParams()
	p.Set("topic", "order_updates")
	p.Set("value.format", "json")
	return &RawResource{
		Name: "order_updates",
		Kind: "changelog",
		Columns: []RawColumn{
			{Name: "order_id", Type: "VARCHAR"},
			{Name: "status", Type: "VARCHAR"},
			{Name: "updated_at", Type: "TIMESTAMP"},
		},
		PrimaryKey: []string{"order_id"},
		Params:     p,
	}
}

func TestNormalize_ValidChangelog(t *testing.T) {
	r, err := Normalize(validChangelog())
	require.NoError(t, err)

	assert.Equal(t, core.KindChangelog, r.Kind)
	assert.Equal(t, core.TriggerManaged, r.Trigger)
	assert.Equal(t, []string{"order_id"}, r.PrimaryKey)
	assert.Equal(t, []string{"topic", "value.format"}, r.Params.Keys())
	assert.True(t, r.IsManaged())
}

func TestNormalize_KindRequired(t *testing.T) {
	raw := &RawResource{Name: "x"}
	_, err := Normalize(raw)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "kind", cfgErr.Field)
}

func TestNormalize_UnknownKindListsValidOnes(t *testing.T) {
	raw := &RawResource{Name: "x", Kind: "view"}
	_, err := Normalize(raw)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "materialized_view", "error should list the valid kinds")
}

func TestNormalize_ParamKeysLowercased(t *testing.T) {
	p := core.NewParams()
	p.Set("Topic", "orders")
	p.Set("Value.Format", "json")
	raw := &RawResource{
		Name:    "orders",
		Kind:    "stream",
		Columns: []RawColumn{{Name: "id", Type: "VARCHAR"}},
		Params:  p,
	}

	r, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"topic", "value.format"}, r.Params.Keys())
}

func TestNormalize_ParamKeyCollision(t *testing.T) {
	p := core.NewParams()
	p.Set("Value.Format", "json")
	p.Set("value.format", "avro")
	raw := &RawResource{
		Name:    "orders",
		Kind:    "stream",
		Columns: []RawColumn{{Name: "id", Type: "VARCHAR"}},
		Params:  p,
	}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "with.value.format", cfgErr.Field)
	assert.Contains(t, cfgErr.Message, "collides")
}

func TestNormalize_StoreRequiresType(t *testing.T) {
	raw := &RawResource{
		Name:   "kafka_main",
		Kind:   "store",
		Params: core.NewParams(),
	}
	raw.Params.Set("uris", "kafka://broker:9092")

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "with.type", cfgErr.Field)
	assert.Contains(t, cfgErr.Message, "type")
}

func TestNormalize_StoreRejectsQueryBody(t *testing.T) {
	p := core.NewParams()
	p.Set("type", "kafka")
	raw := &RawResource{
		Name:   "kafka_main",
		Kind:   "store",
		Params: p,
		SQL:    "SELECT 1",
	}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sql", cfgErr.Field)
}

func TestNormalize_EntityRequiresStore(t *testing.T) {
	raw := &RawResource{Name: "pageviews_topic", Kind: "entity"}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store", cfgErr.Field)
}

func TestNormalize_ChangelogRequiresPrimaryKey(t *testing.T) {
	raw := validChangelog()
	raw.PrimaryKey = nil

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "primary_key", cfgErr.Field)
}

func TestNormalize_PrimaryKeyMustBeDeclaredColumn(t *testing.T) {
	raw := validChangelog()
	raw.PrimaryKey = []string{"customer_id"}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "customer_id")
}

func TestNormalize_StoreBindingSetTwice(t *testing.T) {
	p := core.NewParams()
	p.Set("topic", "orders")
	p.Set("store", "other_store")
	raw := &RawResource{
		Name:    "orders",
		Kind:    "stream",
		Columns: []RawColumn{{Name: "id", Type: "VARCHAR"}},
		Params:  p,
		Store:   "kafka_main",
	}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "with.store", cfgErr.Field)
}

func TestNormalize_PrimaryKeyOnlyForKeyedKinds(t *testing.T) {
	raw := &RawResource{
		Name:       "s",
		Kind:       "stream",
		Columns:    []RawColumn{{Name: "id", Type: "VARCHAR"}},
		PrimaryKey: []string{"id"},
	}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "primary_key", cfgErr.Field)
	assert.Contains(t, cfgErr.Message, "stream")
}

func TestNormalize_MaterializedViewRequiresQuery(t *testing.T) {
	raw := &RawResource{Name: "mv", Kind: "materialized_view"}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sql", cfgErr.Field)
}

func TestNormalize_StreamWithoutQueryNeedsColumns(t *testing.T) {
	raw := &RawResource{Name: "s", Kind: "stream"}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "columns", cfgErr.Field)
}

func TestNormalize_DuplicateColumns(t *testing.T) {
	raw := &RawResource{
		Name: "s",
		Kind: "stream",
		Columns: []RawColumn{
			{Name: "id", Type: "VARCHAR"},
			{Name: "id", Type: "BIGINT"},
		},
	}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "duplicate")
}

func TestNormalize_SourceRequiresNamespace(t *testing.T) {
	raw := &RawResource{
		Name:     "pageviews",
		Kind:     "stream",
		Columns:  []RawColumn{{Name: "id", Type: "VARCHAR"}},
		OnDemand: true,
	}

	_, err := Normalize(raw)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "namespace", cfgErr.Field)

	raw.Namespace = "kafka_ingest"
	r, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, core.TriggerOnDemand, r.Trigger)
	assert.Equal(t, "kafka_ingest.pageviews", r.Key())
}

func TestNormalizeMap_DecodesAndValidates(t *testing.T) {
	r, err := NormalizeMap(map[string]any{
		"name": "clicks",
		"kind": "stream",
		"columns": []any{
			map[string]any{"name": "url", "type": "VARCHAR"},
			map[string]any{"name": "ts", "type": "TIMESTAMP", "not_null": true},
		},
		"with": map[string]any{"topic": "clicks", "value.format": "json"},
	})
	require.NoError(t, err)

	assert.Equal(t, core.KindStream, r.Kind)
	require.Len(t, r.Columns, 2)
	assert.True(t, r.Columns[1].NotNull)
	// Unordered map input comes out sorted, so repeated runs agree.
	assert.Equal(t, []string{"topic", "value.format"}, r.Params.Keys())
}

func TestNormalizeMap_RejectsUnknownKeys(t *testing.T) {
	_, err := NormalizeMap(map[string]any{
		"name":         "clicks",
		"kind":         "stream",
		"materialized": "table",
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "materialized")
}

func TestNormalize_ErrorsAreConfigErrors(t *testing.T) {
	// Every normalization failure must be addressable with errors.As.
	bad := []*RawResource{
		{},
		{Name: "x"},
		{Name: "x", Kind: "nope"},
		{Name: "mv", Kind: "materialized_view"},
	}
	for _, raw := range bad {
		_, err := Normalize(raw)
		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %T", err)
	}
}
