package tribles

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustId(b byte) RawId {
	var raw [16]byte
	raw[15] = b
	id, err := NewRawId(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func TestNewTribleRejectsNilIds(t *testing.T) {
	v := RawValue{}
	_, err := NewTrible(RawId{}, mustId(1), v)
	assert.ErrorIs(t, err, ErrNilEntity)
	_, err = NewTrible(mustId(1), RawId{}, v)
	assert.ErrorIs(t, err, ErrNilAttribute)
}

func TestTribleSetInsertContains(t *testing.T) {
	s := NewTribleSet()
	tr, err := NewTrible(mustId(1), mustId(2), RawValue{3})
	require.NoError(t, err)
	s.Insert(tr)
	assert.True(t, s.Contains(tr))
	assert.EqualValues(t, 1, s.Len())

	other, err := NewTrible(mustId(4), mustId(5), RawValue{6})
	require.NoError(t, err)
	assert.False(t, s.Contains(other))
}

func TestTribleSetCloneIsolation(t *testing.T) {
	s := NewTribleSet()
	tr, _ := NewTrible(mustId(1), mustId(2), RawValue{})
	s.Insert(tr)
	clone := s.Clone()
	tr2, _ := NewTrible(mustId(3), mustId(4), RawValue{})
	clone.Insert(tr2)
	assert.False(t, s.Contains(tr2))
	assert.True(t, clone.Contains(tr2))
}

func randomTrible(r *rand.Rand) Trible {
	var e, a RawId
	var v RawValue
	r.Read(e[:])
	e[15] |= 1
	r.Read(a[:])
	a[15] |= 1
	r.Read(v[:])
	t, _ := NewTrible(e, a, v)
	return t
}

func TestTribleSetSetOps(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	a, b := NewTribleSet(), NewTribleSet()
	var common []Trible
	for i := 0; i < 40; i++ {
		a.Insert(randomTrible(r))
	}
	for i := 0; i < 40; i++ {
		b.Insert(randomTrible(r))
	}
	a.Each(func(t Trible) {
		if len(common) < 10 {
			common = append(common, t)
			b.Insert(t)
		}
	})

	union := a.Union(b)
	inter := a.Intersect(b)
	diff := a.Difference(b)

	assert.True(t, union.Len() >= a.Len())
	assert.True(t, inter.Len() >= uint64(len(common)))
	assert.EqualValues(t, a.Len()-inter.Len(), diff.Len())
	for _, tr := range common {
		assert.True(t, inter.Contains(tr))
		assert.False(t, diff.Contains(tr))
	}
}

func TestTribleSetCloneRemoveDifference(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	original := NewTribleSet()
	var all []Trible
	for i := 0; i < 1000; i++ {
		tr := randomTrible(r)
		all = append(all, tr)
		original.Insert(tr)
	}
	require.EqualValues(t, 1000, original.Len())

	clone := original.Clone()
	for _, tr := range all[:100] {
		clone.Remove(tr)
	}
	assert.EqualValues(t, 900, clone.Len())
	assert.EqualValues(t, 1000, original.Len(), "removing in the clone must not touch the original")
	assert.EqualValues(t, 100, original.Difference(clone).Len())
	assert.EqualValues(t, 0, clone.Difference(original).Len())
}

func TestTribleSetRemoveAbsentIsNoop(t *testing.T) {
	s := NewTribleSet()
	tr, _ := NewTrible(mustId(1), mustId(2), RawValue{})
	s.Insert(tr)
	absent, _ := NewTrible(mustId(3), mustId(4), RawValue{})
	s.Remove(absent)
	assert.EqualValues(t, 1, s.Len())
	assert.True(t, s.Contains(tr))
}

func TestTribleSetDisjointUnionCommutative(t *testing.T) {
	r := rand.New(rand.NewSource(8))
	a, b := NewTribleSet(), NewTribleSet()
	for i := 0; i < 30; i++ {
		a.Insert(randomTrible(r))
	}
	for i := 0; i < 30; i++ {
		b.Insert(randomTrible(r))
	}
	assert.True(t, a.Union(b).Equal(b.Union(a)))
}
