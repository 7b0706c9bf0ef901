package query

import "github.com/triblespace/tribles-go/tribles"

// Binding holds the values assigned to variables mid-query: a fixed
// array of 128 value slots plus a VariableSet recording which slots
// currently hold a value.
type Binding struct {
	values [MaxVariables]tribles.RawValue
	bound  VariableSet
}

// NewBinding returns an empty Binding.
func NewBinding() *Binding { return &Binding{} }

// Get returns the value bound to v, if any.
func (b *Binding) Get(v VariableId) (tribles.RawValue, bool) {
	if !b.bound.IsSet(v) {
		return tribles.RawValue{}, false
	}
	return b.values[v], true
}

// Set binds v to val.
func (b *Binding) Set(v VariableId, val tribles.RawValue) {
	b.values[v] = val
	b.bound.Set(v)
}

// Unset removes any binding for v.
func (b *Binding) Unset(v VariableId) {
	b.bound.Unset(v)
}

// Bound returns the set of currently bound variables.
func (b *Binding) Bound() *VariableSet { return &b.bound }

// Clone returns an independent copy of b.
func (b *Binding) Clone() *Binding {
	cp := &Binding{values: b.values, bound: *b.bound.Clone()}
	return cp
}
