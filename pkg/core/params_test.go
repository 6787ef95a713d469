package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsInsertionOrder(t *testing.T) {
	p := NewParams()
	p.Set("topic", "orders")
	p.Set("value.format", "json")
	p.Set("key.format", "primitive")

	assert.Equal(t, []string{"topic", "value.format", "key.format"}, p.Keys())

	// Overwriting keeps the original position.
	p.Set("topic", "orders_v2")
	assert.Equal(t, []string{"topic", "value.format", "key.format"}, p.Keys())
	v, ok := p.Get("topic")
	assert.True(t, ok)
	assert.Equal(t, "orders_v2", v)
}

func TestParamsFromMapIsSorted(t *testing.T) {
	m := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}
	p := ParamsFromMap(m)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, p.Keys())
}

func TestParamsNilSafety(t *testing.T) {
	var p *Params
	assert.Equal(t, 0, p.Len())
	assert.Nil(t, p.Keys())
	assert.False(t, p.Has("anything"))
	assert.Nil(t, p.Clone())
}

func TestParamsClone(t *testing.T) {
	p := NewParams()
	p.Set("b", 1)
	p.Set("a", 2)

	c := p.Clone()
	c.Set("z", 3)

	assert.Equal(t, []string{"b", "a"}, p.Keys(), "clone must not mutate the original")
	assert.Equal(t, []string{"b", "a", "z"}, c.Keys())
}
