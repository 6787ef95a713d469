package core

import "sort"

// Params is an insertion-ordered set of engine parameters. Plain Go maps do
// not preserve order, and WITH-clause rendering must be stable across builds,
// so parameters keep the order in which they were first set.
type Params struct {
	keys   []string
	values map[string]any
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// ParamsFromMap builds a parameter set from an unordered map. Keys are
// inserted in sorted order so the result is deterministic.
func ParamsFromMap(m map[string]any) *Params {
	p := NewParams()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set stores a value. A new key is appended; an existing key keeps its
// original position.
func (p *Params) Set(key string, value any) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Len returns the number of parameters. Safe on nil.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Clone returns an independent copy preserving order. Safe on nil.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	out := NewParams()
	for _, k := range p.keys {
		out.Set(k, p.values[k])
	}
	return out
}

// Map returns the parameters as a plain map, losing order. Intended for
// serialization surfaces that sort keys themselves.
func (p *Params) Map() map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p.keys))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}
