package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, `"db"."public"."orders"`, QualifiedName("db", "public", "orders"))
	assert.Equal(t, `"public"."orders"`, QualifiedName("", "public", "orders"))
	assert.Equal(t, `"orders"`, QualifiedName("", "", "orders"))
}

func TestQuoteIdentEscapesQuotes(t *testing.T) {
	assert.Equal(t, `"odd""name"`, QuoteIdent(`odd"name`))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'json'`, QuoteLiteral("json"))
	assert.Equal(t, `'it''s'`, QuoteLiteral("it's"))
}

func TestResourceQualifiedName(t *testing.T) {
	r := &Resource{Name: "orders", Kind: KindStream}
	assert.Equal(t, `"prod"."analytics"."orders"`, r.QualifiedName("prod", "analytics"))

	r.Database = "raw"
	r.Schema = "ingest"
	assert.Equal(t, `"raw"."ingest"."orders"`, r.QualifiedName("prod", "analytics"))
}

func TestResourceKey(t *testing.T) {
	managed := &Resource{Name: "orders"}
	assert.Equal(t, "orders", managed.Key())
	assert.True(t, managed.IsManaged())

	src := &Resource{Name: "pageviews", Namespace: "kafka_ingest", Trigger: TriggerOnDemand}
	assert.Equal(t, "kafka_ingest.pageviews", src.Key())
	assert.False(t, src.IsManaged())
}
