package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triblespace/tribles-go/tribles"
)

func TestBindingSetGetUnset(t *testing.T) {
	b := NewBinding()
	_, ok := b.Get(0)
	assert.False(t, ok)

	var val tribles.RawValue
	val[0] = 7
	b.Set(0, val)
	got, ok := b.Get(0)
	require.True(t, ok)
	assert.Equal(t, val, got)

	b.Unset(0)
	_, ok = b.Get(0)
	assert.False(t, ok)
}

func TestBindingCloneIsolation(t *testing.T) {
	b := NewBinding()
	var val tribles.RawValue
	val[0] = 1
	b.Set(0, val)

	clone := b.Clone()
	var other tribles.RawValue
	other[0] = 2
	clone.Set(1, other)

	_, ok := b.Get(1)
	assert.False(t, ok, "mutating a clone must not affect the original")
	assert.True(t, b.Bound().IsSet(0))
	assert.False(t, b.Bound().IsSet(1))
}
