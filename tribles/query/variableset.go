// Package query implements the constraint-based, worst-case-optimal
// join query engine: a VariableSet/Binding pair, the Constraint
// interface and its combinators, the TribleSet pattern and
// regular-path constraints, and the depth-first query driver that
// ties them together.
package query

import "github.com/RoaringBitmap/roaring/v2"

// VariableId identifies a query variable, in [0,128).
type VariableId uint8

// MaxVariables bounds how many distinct variables a single query may
// mention, matching the 128-slot Binding below.
const MaxVariables = 128

// VariableSet is a set of VariableIds. The zero value is an empty set.
// Backed by a roaring bitmap rather than a plain uint128 or bitset
// array: the pack already carries RoaringBitmap/roaring/v2 for the
// archive's wavelet-matrix-substitute bitmaps, and a query's working
// sets (variables(), influence()) are exactly the sparse,
// set-algebra-heavy workload roaring bitmaps are built for.
type VariableSet struct {
	bm *roaring.Bitmap
}

// NewVariableSet returns a VariableSet containing ids.
func NewVariableSet(ids ...VariableId) *VariableSet {
	vs := &VariableSet{bm: roaring.New()}
	for _, id := range ids {
		vs.bm.Add(uint32(id))
	}
	return vs
}

func (vs *VariableSet) ensure() *roaring.Bitmap {
	if vs.bm == nil {
		vs.bm = roaring.New()
	}
	return vs.bm
}

// Set adds v to the set.
func (vs *VariableSet) Set(v VariableId) { vs.ensure().Add(uint32(v)) }

// Unset removes v from the set.
func (vs *VariableSet) Unset(v VariableId) { vs.ensure().Remove(uint32(v)) }

// IsSet reports whether v is a member.
func (vs *VariableSet) IsSet(v VariableId) bool { return vs.ensure().Contains(uint32(v)) }

// Count returns the number of members.
func (vs *VariableSet) Count() int { return int(vs.ensure().GetCardinality()) }

// Empty reports whether the set has no members.
func (vs *VariableSet) Empty() bool { return vs.ensure().IsEmpty() }

// Clone returns an independent copy.
func (vs *VariableSet) Clone() *VariableSet {
	return &VariableSet{bm: vs.ensure().Clone()}
}

// Union returns the union of vs and o as a new set.
func (vs *VariableSet) Union(o *VariableSet) *VariableSet {
	out := vs.Clone()
	out.bm.Or(o.ensure())
	return out
}

// Intersect returns the intersection of vs and o as a new set.
func (vs *VariableSet) Intersect(o *VariableSet) *VariableSet {
	out := vs.Clone()
	out.bm.And(o.ensure())
	return out
}

// Subtract returns vs with every member of o removed, as a new set.
func (vs *VariableSet) Subtract(o *VariableSet) *VariableSet {
	out := vs.Clone()
	out.bm.AndNot(o.ensure())
	return out
}

// Each calls f for every member in ascending order.
func (vs *VariableSet) Each(f func(VariableId)) {
	it := vs.ensure().Iterator()
	for it.HasNext() {
		f(VariableId(it.Next()))
	}
}

// DrainNextAscending removes and returns the smallest member, or
// (0, false) if the set is empty.
func (vs *VariableSet) DrainNextAscending() (VariableId, bool) {
	bm := vs.ensure()
	if bm.IsEmpty() {
		return 0, false
	}
	min := bm.Minimum()
	bm.Remove(min)
	return VariableId(min), true
}
