package patch

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func randKey(r *rand.Rand) []byte {
	k := make([]byte, 64)
	r.Read(k)
	return k
}

func TestInsertGetRoundtrip(t *testing.T) {
	p := New[int](EAV)
	r := rand.New(rand.NewSource(1))
	keys := make([][]byte, 0, 200)
	for i := 0; i < 200; i++ {
		k := randKey(r)
		keys = append(keys, k)
		p.Insert(k, i)
	}
	for i, k := range keys {
		v, ok := p.Get(k)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.EqualValues(t, 200, p.Len())
}

func TestInsertIdempotent(t *testing.T) {
	p := New[int](EAV)
	k := make([]byte, 64)
	p.Insert(k, 1)
	p.Insert(k, 2)
	v, ok := p.Get(k)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.EqualValues(t, 1, p.Len())
}

func TestReplaceOverwrites(t *testing.T) {
	p := New[int](EAV)
	k := make([]byte, 64)
	p.Insert(k, 1)
	p.Replace(k, 2)
	v, ok := p.Get(k)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRemove(t *testing.T) {
	p := New[int](EAV)
	r := rand.New(rand.NewSource(2))
	keys := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		k := randKey(r)
		keys = append(keys, k)
		p.Insert(k, i)
	}
	for i, k := range keys {
		if i%2 == 0 {
			p.Remove(k)
		}
	}
	assert.EqualValues(t, 50, p.Len())
	for i, k := range keys {
		_, ok := p.Get(k)
		if i%2 == 0 {
			assert.False(t, ok)
		} else {
			assert.True(t, ok)
		}
	}
}

func TestCloneIsolation(t *testing.T) {
	p := New[int](EAV)
	k1, k2 := make([]byte, 64), make([]byte, 64)
	k2[0] = 1
	p.Insert(k1, 1)
	clone := p.Clone()
	clone.Insert(k2, 2)

	_, ok := p.Get(k2)
	assert.False(t, ok, "mutating a clone must not affect the original")
	_, ok = clone.Get(k2)
	assert.True(t, ok)
}

func TestHasPrefixEmptyConvention(t *testing.T) {
	empty := New[struct{}](EAV)
	assert.False(t, empty.HasPrefix(nil), "an empty PATCH has no prefix, including the empty one")

	nonEmpty := New[struct{}](EAV)
	nonEmpty.Insert(make([]byte, 64), struct{}{})
	assert.True(t, nonEmpty.HasPrefix(nil), "any non-empty PATCH has the empty prefix")
}

func TestHasPrefixNonEmpty(t *testing.T) {
	p := New[struct{}](EAV)
	k := make([]byte, 64)
	for i := range k {
		k[i] = byte(i)
	}
	p.Insert(k, struct{}{})
	assert.True(t, p.HasPrefix(k[:4]))
	miss := append([]byte{}, k[:4]...)
	miss[0] ^= 0xff
	assert.False(t, p.HasPrefix(miss))
}

func TestSegmentedLenCountsDistinctChildren(t *testing.T) {
	p := New[struct{}](EAV)
	for a := 0; a < 4; a++ {
		k := make([]byte, 64)
		k[16] = byte(a) // varies the A segment's leading byte
		p.Insert(k, struct{}{})
	}
	assert.EqualValues(t, 4, p.SegmentedLen(make([]byte, 16), 16))
}

// TestFullFanout exercises the widest possible branch: 256 keys
// differing only in their first byte, so the root's child table must
// grow to one slot per byte value.
func TestFullFanout(t *testing.T) {
	p := New[struct{}](EAV)
	for b := 0; b < 256; b++ {
		k := make([]byte, 64)
		k[0] = byte(b)
		p.Insert(k, struct{}{})
	}
	assert.EqualValues(t, 256, p.SegmentedLen(nil, 16))

	var prefixes [][]byte
	p.EachPrefixCount(1, func(prefix []byte, count uint64) {
		assert.EqualValues(t, 1, count)
		prefixes = append(prefixes, append([]byte{}, prefix...))
	})
	assert.Len(t, prefixes, 256)
	assert.True(t, sort.SliceIsSorted(prefixes, func(i, j int) bool {
		return bytes.Compare(prefixes[i], prefixes[j]) < 0
	}))
}

func TestEachPrefixCountGroupsSharedPrefixes(t *testing.T) {
	p := New[struct{}](EAV)
	for i := 0; i < 3; i++ {
		k := make([]byte, 64)
		k[0] = 7
		k[20] = byte(i) // same E segment, three distinct A segments
		p.Insert(k, struct{}{})
	}
	other := make([]byte, 64)
	other[0] = 9
	p.Insert(other, struct{}{})

	counts := map[byte]uint64{}
	p.EachPrefixCount(16, func(prefix []byte, count uint64) {
		counts[prefix[0]] = count
	})
	assert.Equal(t, map[byte]uint64{7: 3, 9: 1}, counts)
}

func TestUnionIntersectDifferenceLaws(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	a := New[struct{}](EAV)
	b := New[struct{}](EAV)
	var aKeys, bKeys [][]byte
	for i := 0; i < 50; i++ {
		k := randKey(r)
		aKeys = append(aKeys, k)
		a.Insert(k, struct{}{})
	}
	for i := 0; i < 50; i++ {
		k := randKey(r)
		bKeys = append(bKeys, k)
		b.Insert(k, struct{}{})
	}
	// force some overlap
	for i := 0; i < 10; i++ {
		b.Insert(aKeys[i], struct{}{})
	}

	union := a.Union(b)
	inter := a.Intersect(b)
	diff := a.Difference(b)

	assert.True(t, union.Len() >= a.Len() && union.Len() >= b.Len())
	assert.True(t, inter.Len() >= 10)
	assert.EqualValues(t, a.Len()-inter.Len(), diff.Len())

	a.Each(func(k []byte, _ struct{}) {
		assert.True(t, union.HasPrefix(k))
	})
}

// TestUnionIntersectDifferenceExactMembership checks every merge
// result against a reference map built by brute-force set operations,
// not just cardinality bounds.
func TestUnionIntersectDifferenceExactMembership(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	a := New[int](EAV)
	b := New[int](EAV)
	refA := map[[64]byte]int{}
	refB := map[[64]byte]int{}
	for i := 0; i < 80; i++ {
		k := randKey(r)
		var arr [64]byte
		copy(arr[:], k)
		refA[arr] = i
		a.Insert(k, i)
	}
	for i := 0; i < 80; i++ {
		k := randKey(r)
		var arr [64]byte
		copy(arr[:], k)
		refB[arr] = 1000 + i
		b.Insert(k, 1000+i)
	}
	// force overlap, with distinct values, to exercise receiver-wins
	// precedence on every merge.
	overlapKeys := make([][64]byte, 0, 20)
	i := 0
	for k := range refA {
		if i >= 20 {
			break
		}
		overlapKeys = append(overlapKeys, k)
		i++
	}
	for _, k := range overlapKeys {
		refB[k] = 99999
		b.Insert(k[:], 99999)
	}

	union := a.Union(b)
	inter := a.Intersect(b)
	diff := a.Difference(b)

	refUnion := map[[64]byte]int{}
	for k, v := range refB {
		refUnion[k] = v
	}
	for k, v := range refA {
		refUnion[k] = v // a wins on overlap
	}
	for k, v := range refUnion {
		got, ok := union.Get(k[:])
		assert.True(t, ok, "union missing key")
		assert.Equal(t, v, got)
	}
	assert.EqualValues(t, len(refUnion), union.Len())

	for k, v := range refA {
		_, inB := refB[k]
		if inB {
			got, ok := inter.Get(k[:])
			assert.True(t, ok, "intersect missing overlapping key")
			assert.Equal(t, v, got, "intersect must keep receiver's value")
		} else {
			_, ok := inter.Get(k[:])
			assert.False(t, ok, "intersect has non-overlapping key")
		}
	}

	for k, v := range refA {
		_, inB := refB[k]
		if inB {
			_, ok := diff.Get(k[:])
			assert.False(t, ok, "difference kept a key present in the other side")
		} else {
			got, ok := diff.Get(k[:])
			assert.True(t, ok, "difference dropped a key unique to the receiver")
			assert.Equal(t, v, got)
		}
	}
}

// TestUnionSharesIdenticalSubtree checks the digest short-circuit: two
// PATCHes built from the very same keys and values produce a Union
// whose root is the receiver's root by reference, not a rebuilt copy.
func TestUnionSharesIdenticalSubtree(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	a := New[int](EAV)
	b := New[int](EAV)
	for i := 0; i < 40; i++ {
		k := randKey(r)
		a.Insert(k, i)
		b.Insert(k, i)
	}
	require.Equal(t, a.root.hash(), b.root.hash(), "identically-built PATCHes must hash equal")
	out := a.Union(b)
	assert.Same(t, a.root, out.root, "a matching digest must short-circuit to the receiver's own subtree")
}

func TestEqual(t *testing.T) {
	a := New[int](EAV)
	b := New[int](EAV)
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 30; i++ {
		k := randKey(r)
		a.Insert(k, i)
		b.Insert(k, i)
	}
	assert.True(t, a.Equal(b))
	b.Remove(func() []byte { var k []byte; a.Each(func(key []byte, _ int) { k = key }); return k }())
	assert.False(t, a.Equal(b))
}

func TestEachOrderedIsSorted(t *testing.T) {
	p := New[struct{}](EAV)
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 300; i++ {
		p.Insert(randKey(r), struct{}{})
	}
	var keys [][]byte
	p.EachOrdered(func(k []byte, _ struct{}) {
		cp := append([]byte{}, k...)
		keys = append(keys, cp)
	})
	assert.True(t, sort.SliceIsSorted(keys, func(i, j int) bool {
		for d := 0; d < 64; d++ {
			ti := EAV.TreeToKey[d]
			if keys[i][ti] != keys[j][ti] {
				return keys[i][ti] < keys[j][ti]
			}
		}
		return false
	}))
}

// TestPropertyInsertRemoveLen checks that Len tracks the true
// cardinality of a randomized sequence of inserts and removes against
// a reference map, across many random sequences.
func TestPropertyInsertRemoveLen(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := New[int](EAV)
		ref := map[[64]byte]int{}
		n := rapid.IntRange(0, 60).Draw(rt, "n")
		for i := 0; i < n; i++ {
			var k [64]byte
			// keep the key space small to force splits, merges and
			// collisions against the reference map.
			k[0] = byte(rapid.IntRange(0, 15).Draw(rt, "k0"))
			k[1] = byte(rapid.IntRange(0, 3).Draw(rt, "k1"))
			doRemove := rapid.Bool().Draw(rt, "remove")
			if doRemove {
				p.Remove(k[:])
				delete(ref, k)
			} else {
				v := rapid.IntRange(0, 1000).Draw(rt, "v")
				if _, exists := ref[k]; !exists {
					ref[k] = v
				}
				p.Insert(k[:], v)
			}
		}
		assert.EqualValues(rt, len(ref), p.Len())
		for k, v := range ref {
			got, ok := p.Get(k[:])
			assert.True(rt, ok)
			assert.Equal(rt, v, got)
		}
	})
}
