package patch

import (
	"bytes"

	"github.com/triblespace/tribles-go/internal/tlog"
)

// PATCH is a persistent, adaptive radix trie over fixed-length byte
// keys, ordered and segmented according to a Schema. The zero value is
// not usable; construct one with New.
//
// A *PATCH is a thin, mutable handle onto an immutable node graph:
// Insert/Replace/Remove replace the handle's root with a freshly built
// path down to the change, leaving every untouched subtree shared by
// reference. Clone is therefore O(1) and produces a handle whose
// future mutations are fully isolated from the original's.
type PATCH[V any] struct {
	schema *Schema
	root   node[V]
}

// New returns an empty PATCH keyed and ordered by schema.
func New[V any](schema *Schema) *PATCH[V] {
	return &PATCH[V]{schema: schema}
}

// Clone returns a handle sharing the current node graph; mutating the
// clone never affects the receiver or vice versa.
func (p *PATCH[V]) Clone() *PATCH[V] {
	return &PATCH[V]{schema: p.schema, root: p.root}
}

// Len reports the number of keys stored.
func (p *PATCH[V]) Len() uint64 {
	if p.root == nil {
		return 0
	}
	return p.root.leafCount()
}

// Schema returns the ordering this PATCH was constructed with.
func (p *PATCH[V]) Schema() *Schema { return p.schema }

// Get returns the value stored for key, if any.
func (p *PATCH[V]) Get(key []byte) (V, bool) {
	n := p.root
	depth := 0
	for n != nil {
		switch cur := n.(type) {
		case *leaf[V]:
			if bytes.Equal(cur.key, key) {
				return cur.value, cur.hasValue
			}
			var zero V
			return zero, false
		case *branch[V]:
			if diverge(p.schema, cur.representative(), key, depth, cur.endDepth_) != cur.endDepth_ {
				var zero V
				return zero, false
			}
			child, ok := cur.children.get(byteAt(p.schema, key, cur.endDepth_))
			if !ok {
				var zero V
				return zero, false
			}
			n = child
			depth = cur.endDepth_ + 1
		}
	}
	var zero V
	return zero, false
}

// Insert adds key with value if key is not already present; an
// existing entry for key is left unchanged.
func (p *PATCH[V]) Insert(key []byte, value V) {
	before := p.Len()
	p.root = insertNode(p.schema, p.root, key, value, true, false, 0)
	tlog.Debug("patch: insert", "schema", p.schema.Name, "len", p.Len(), "inserted", p.Len() > before)
}

// Replace adds key with value, overwriting any existing value.
func (p *PATCH[V]) Replace(key []byte, value V) {
	p.root = insertNode(p.schema, p.root, key, value, true, true, 0)
	tlog.Debug("patch: replace", "schema", p.schema.Name, "len", p.Len())
}

// Remove deletes key, if present.
func (p *PATCH[V]) Remove(key []byte) {
	before := p.Len()
	p.root, _ = removeNode[V](p.schema, p.root, key, 0)
	tlog.Debug("patch: remove", "schema", p.schema.Name, "len", p.Len(), "removed", p.Len() < before)
}

func insertNode[V any](schema *Schema, n node[V], key []byte, value V, hasValue, replace bool, depth int) node[V] {
	if n == nil {
		return newLeaf(key, value, hasValue)
	}
	switch cur := n.(type) {
	case *leaf[V]:
		d := diverge(schema, cur.key, key, depth, schema.KeyLen)
		if d == schema.KeyLen {
			if replace {
				return newLeaf(key, value, hasValue)
			}
			return cur
		}
		return splitLeaf(schema, cur, key, value, hasValue, d)
	case *branch[V]:
		d := diverge(schema, cur.representative(), key, depth, cur.endDepth_)
		if d < cur.endDepth_ {
			newLf := newLeaf(key, value, hasValue)
			return joinAt[V](schema, d, cur, newLf)
		}
		childByte := byteAt(schema, key, cur.endDepth_)
		child, ok := cur.children.get(childByte)
		nb := cur.cloneShallow()
		if !ok {
			newChild := newLeaf(key, value, hasValue)
			nb.children.put(childByte, newChild)
			nb.h = nb.h.xor(newChild.hash())
			nb.leafCount_++
			return nb
		}
		before := child.leafCount()
		newChild := insertNode(schema, child, key, value, hasValue, replace, cur.endDepth_+1)
		nb.children.put(childByte, newChild)
		nb.h = nb.h.xor(child.hash()).xor(newChild.hash())
		nb.leafCount_ += newChild.leafCount() - before
		return nb
	}
	panic("patch: unreachable node type")
}

// splitLeaf builds the branch that replaces leaf l when a new key
// diverges from it at tree depth d.
func splitLeaf[V any](schema *Schema, l *leaf[V], key []byte, value V, hasValue bool, d int) node[V] {
	newLf := newLeaf(key, value, hasValue)
	return joinAt[V](schema, d, l, newLf)
}

// joinAt builds the branch with end depth d whose two children are a
// and b, which must diverge exactly at tree depth d.
func joinAt[V any](schema *Schema, d int, a, b node[V]) *branch[V] {
	nb := &branch[V]{
		endDepth_:  d,
		childleaf:  a.representative(),
		leafCount_: a.leafCount() + b.leafCount(),
		h:          a.hash().xor(b.hash()),
		children:   newCuckoo[V](startCuckooCap),
	}
	nb.children.put(byteAt(schema, a.representative(), d), a)
	nb.children.put(byteAt(schema, b.representative(), d), b)
	return nb
}

// removeNode returns the node graph with key removed, and whether
// anything was actually removed.
func removeNode[V any](schema *Schema, n node[V], key []byte, depth int) (node[V], bool) {
	if n == nil {
		return nil, false
	}
	switch cur := n.(type) {
	case *leaf[V]:
		if diverge(schema, cur.key, key, depth, schema.KeyLen) != schema.KeyLen {
			return cur, false
		}
		return nil, true
	case *branch[V]:
		if diverge(schema, cur.representative(), key, depth, cur.endDepth_) != cur.endDepth_ {
			return cur, false
		}
		childByte := byteAt(schema, key, cur.endDepth_)
		child, ok := cur.children.get(childByte)
		if !ok {
			return cur, false
		}
		newChild, removed := removeNode[V](schema, child, key, cur.endDepth_+1)
		if !removed {
			return cur, false
		}
		nb := cur.cloneShallow()
		nb.leafCount_--
		if newChild == nil {
			nb.children.remove(childByte)
			nb.h = nb.h.xor(child.hash())
		} else {
			nb.children.put(childByte, newChild)
			nb.h = nb.h.xor(child.hash()).xor(newChild.hash())
		}
		if nb.children.count() == 1 {
			_, only := nb.children.only()
			return only, true
		}
		if bytes.Equal(cur.childleaf, key) {
			_, anyChild := nb.children.only()
			if anyChild == nil {
				nb.children.each(func(_ byte, c node[V]) { anyChild = c })
			}
			nb.childleaf = anyChild.representative()
		}
		return nb, true
	}
	panic("patch: unreachable node type")
}

// HasPrefix reports whether any stored key agrees with prefix on its
// first len(prefix) tree-ordered bytes. A zero-length prefix is
// present iff the PATCH is non-empty: an empty prefix trivially
// prefixes every key, so the question degenerates to "is there a key
// at all".
func (p *PATCH[V]) HasPrefix(prefix []byte) bool {
	if len(prefix) == 0 {
		return p.Len() > 0
	}
	return nodeAtPrefix[V](p.schema, p.root, prefix) != nil
}

// prefixAsKey rebuilds a full-length key-ordered byte slice that
// agrees with base everywhere except the tree-ordered positions
// covered by prefix, letting diverge compare against prefix using the
// normal key-ordered machinery.
func prefixAsKey(schema *Schema, base, prefix []byte) []byte {
	out := make([]byte, len(base))
	copy(out, base)
	for d := 0; d < len(prefix); d++ {
		out[schema.TreeToKey[d]] = prefix[d]
	}
	return out
}

// nodeAtPrefix walks to the node whose subtree is exactly the set of
// keys sharing the given tree-ordered prefix, or nil if none do.
func nodeAtPrefix[V any](schema *Schema, root node[V], prefix []byte) node[V] {
	n := root
	depth := 0
	want := len(prefix)
	for n != nil {
		switch cur := n.(type) {
		case *leaf[V]:
			if diverge(schema, cur.key, prefixAsKey(schema, cur.key, prefix), depth, want) >= want {
				return cur
			}
			return nil
		case *branch[V]:
			cmpEnd := cur.endDepth_
			if cmpEnd > want {
				cmpEnd = want
			}
			if diverge(schema, cur.representative(), prefixAsKey(schema, cur.representative(), prefix), depth, cmpEnd) != cmpEnd {
				return nil
			}
			if cur.endDepth_ >= want {
				return cur
			}
			child, ok := cur.children.get(prefix[cur.endDepth_])
			if !ok {
				return nil
			}
			n = child
			depth = cur.endDepth_ + 1
		}
	}
	return nil
}

// SegmentedLen returns the number of distinct values taken by the
// tree-ordered byte range [len(prefix), len(prefix)+segLen) among keys
// sharing prefix — e.g. the number of distinct attribute values
// following a bound entity, when segLen is the attribute segment's
// width. This is the primitive the query engine's estimate() uses to
// size a bound variable's candidate set without enumerating it.
//
// A segment wider than one byte can still fan out below the first
// branch prefix reaches (two keys may share that branch's immediate
// selector byte yet diverge later within the same segment), so this
// delegates to Infixes rather than reading a single branch's child
// count directly.
func (p *PATCH[V]) SegmentedLen(prefix []byte, segLen int) uint64 {
	return uint64(len(p.Infixes(prefix, segLen)))
}

// Infixes collects one representative full key per distinct value
// taken by the tree-ordered byte range [prefixLen, prefixLen+segLen)
// immediately following prefix, restricted to keys sharing prefix. The
// range must lie within a single schema segment. This backs the
// leapfrog-triejoin propose step: each returned key carries one
// candidate binding for the next unbound variable.
func (p *PATCH[V]) Infixes(prefix []byte, segLen int) [][]byte {
	start := len(prefix)
	end := start + segLen
	if !segmentAligned(p.schema, start, end) {
		panic("patch: Infixes range crosses a segment boundary")
	}
	n := nodeAtPrefix[V](p.schema, p.root, prefix)
	if n == nil {
		return nil
	}
	var out [][]byte
	collectInfixes[V](p.schema, n, start, end, &out)
	return out
}

func collectInfixes[V any](schema *Schema, n node[V], start, end int, out *[][]byte) {
	switch cur := n.(type) {
	case *leaf[V]:
		*out = append(*out, cur.key)
	case *branch[V]:
		if cur.endDepth_ >= end {
			*out = append(*out, cur.representative())
			return
		}
		cur.children.eachSorted(func(_ byte, c node[V]) {
			collectInfixes[V](schema, c, start, end, out)
		})
	}
}

// EachPrefixCount calls f once per distinct tree-ordered prefix of
// length prefixLen present in the set, in ascending prefix order,
// together with the number of stored keys sharing that prefix.
func (p *PATCH[V]) EachPrefixCount(prefixLen int, f func(prefix []byte, count uint64)) {
	if p.root == nil {
		return
	}
	eachPrefixCount[V](p.schema, p.root, prefixLen, f)
}

// treePrefix projects the first n tree-ordered bytes out of a full
// key-ordered key.
func treePrefix(schema *Schema, key []byte, n int) []byte {
	out := make([]byte, n)
	for d := 0; d < n; d++ {
		out[d] = key[schema.TreeToKey[d]]
	}
	return out
}

func eachPrefixCount[V any](schema *Schema, n node[V], prefixLen int, f func(prefix []byte, count uint64)) {
	switch cur := n.(type) {
	case *leaf[V]:
		f(treePrefix(schema, cur.key, prefixLen), 1)
	case *branch[V]:
		// Once a branch's end depth covers the whole prefix, every key
		// below it shares that prefix; the subtree contributes exactly
		// one pair.
		if cur.endDepth_ >= prefixLen {
			f(treePrefix(schema, cur.representative(), prefixLen), cur.leafCount_)
			return
		}
		cur.children.eachSorted(func(_ byte, c node[V]) {
			eachPrefixCount[V](schema, c, prefixLen, f)
		})
	}
}

// Each calls f for every stored (key, value) pair in unspecified order.
func (p *PATCH[V]) Each(f func(key []byte, value V)) {
	if p.root == nil {
		return
	}
	eachNode[V](p.root, f)
}

func eachNode[V any](n node[V], f func(key []byte, value V)) {
	switch cur := n.(type) {
	case *leaf[V]:
		f(cur.key, cur.value)
	case *branch[V]:
		cur.children.each(func(_ byte, c node[V]) { eachNode[V](c, f) })
	}
}

// EachOrdered calls f for every stored (key, value) pair in ascending
// tree-order (equivalently, ascending order of the schema's permuted
// key bytes).
func (p *PATCH[V]) EachOrdered(f func(key []byte, value V)) {
	if p.root == nil {
		return
	}
	eachNodeOrdered[V](p.root, f)
}

func eachNodeOrdered[V any](n node[V], f func(key []byte, value V)) {
	switch cur := n.(type) {
	case *leaf[V]:
		f(cur.key, cur.value)
	case *branch[V]:
		cur.children.eachSorted(func(_ byte, c node[V]) { eachNodeOrdered[V](c, f) })
	}
}

// Equal reports whether p and o hold the same set of keys; stored
// values are not compared. Counts or root digests that disagree decide
// the answer in O(1).
func (p *PATCH[V]) Equal(o *PATCH[V]) bool {
	if p.Len() != o.Len() {
		return false
	}
	if p.root == nil && o.root == nil {
		return true
	}
	if p.root == nil || o.root == nil {
		return false
	}
	if p.root.hash() != o.root.hash() {
		return false
	}
	// Hash equality is overwhelmingly conclusive but not a proof;
	// confirm with a direct walk to stay correct against accidental
	// collisions.
	match := true
	p.Each(func(key []byte, _ V) {
		if !match {
			return
		}
		if _, ok := o.Get(key); !ok {
			match = false
		}
	})
	return match
}

// Union returns a new PATCH holding every key in p or o (p's value wins
// on overlap), built by a structural merge that shares every subtree
// untouched by the other side and short-circuits whole subtrees whose
// digests already agree.
func (p *PATCH[V]) Union(o *PATCH[V]) *PATCH[V] {
	if o.root == nil {
		return &PATCH[V]{schema: p.schema, root: p.root}
	}
	if p.root == nil {
		return &PATCH[V]{schema: p.schema, root: o.root}
	}
	out := mergeUnion[V](p.schema, p.root, o.root, 0)
	tlog.Debug("patch: union", "schema", p.schema.Name, "left", p.Len(), "right", o.Len(), "result", out.leafCount())
	return &PATCH[V]{schema: p.schema, root: out}
}

// Intersect returns a new PATCH holding every key present in both p
// and o, with p's values, via the same structural merge as Union.
func (p *PATCH[V]) Intersect(o *PATCH[V]) *PATCH[V] {
	if p.root == nil || o.root == nil {
		return New[V](p.schema)
	}
	return &PATCH[V]{schema: p.schema, root: mergeIntersect[V](p.schema, p.root, o.root, 0)}
}

// Difference returns a new PATCH holding every key present in p but
// not in o, via the same structural merge as Union.
func (p *PATCH[V]) Difference(o *PATCH[V]) *PATCH[V] {
	if p.root == nil {
		return New[V](p.schema)
	}
	if o.root == nil {
		return &PATCH[V]{schema: p.schema, root: p.root}
	}
	return &PATCH[V]{schema: p.schema, root: mergeDifference[V](p.schema, p.root, o.root, 0)}
}

// firstDivergence reports the tree depth at which a and b's
// representative keys first differ, searching only the range both
// nodes still agree they might share ([depth, min(a.endDepth,
// b.endDepth))). The second result is false when no such depth exists
// within that range, meaning one of the two nodes' subtrees is nested
// inside the other's.
func firstDivergence[V any](schema *Schema, a, b node[V], depth int) (int, bool) {
	end := a.endDepth()
	if b.endDepth() < end {
		end = b.endDepth()
	}
	d := diverge(schema, a.representative(), b.representative(), depth, end)
	if d < end {
		return d, true
	}
	return 0, false
}

// collapseOrNil turns a branch left with zero or one children (after a
// difference removed the rest) into nil or that sole child, the same
// collapse removeNode performs after deleting a key.
func collapseOrNil[V any](nb *branch[V]) node[V] {
	switch nb.children.count() {
	case 0:
		return nil
	case 1:
		_, only := nb.children.only()
		return only
	default:
		return nb
	}
}

// addChild folds an extra already-built subtree into a freshly made
// branch's child table, keeping its digest and leaf count in sync.
func addChild[V any](nb *branch[V], schema *Schema, n node[V]) {
	b := byteAt(schema, n.representative(), nb.endDepth_)
	nb.children.put(b, n)
	nb.h = nb.h.xor(n.hash())
	nb.leafCount_ += n.leafCount()
}

// mergeUnion recursively merges a and b, both nodes whose subtrees
// begin at tree depth depth, giving a's value priority when the same
// key appears in both. Whenever a and b's digests already agree, the
// whole subtree is shared unchanged without visiting it; whenever
// their representative keys diverge, they are simply joined into a new
// branch at that depth, same as inserting one leaf into the other's
// position.
func mergeUnion[V any](schema *Schema, a, b node[V], depth int) node[V] {
	if a.hash() == b.hash() {
		return a
	}
	if d, diverged := firstDivergence[V](schema, a, b, depth); diverged {
		return joinAt[V](schema, d, a, b)
	}
	aDepth, bDepth := a.endDepth(), b.endDepth()
	switch {
	case aDepth < bDepth:
		ab := a.(*branch[V])
		childByte := byteAt(schema, b.representative(), aDepth)
		nb := ab.cloneShallow()
		child, ok := nb.children.get(childByte)
		if !ok {
			addChild[V](nb, schema, b)
			return nb
		}
		merged := mergeUnion[V](schema, child, b, aDepth+1)
		nb.h = nb.h.xor(child.hash()).xor(merged.hash())
		nb.leafCount_ += merged.leafCount() - child.leafCount()
		nb.children.put(childByte, merged)
		return nb
	case bDepth < aDepth:
		bb := b.(*branch[V])
		childByte := byteAt(schema, a.representative(), bDepth)
		nb := bb.cloneShallow()
		child, ok := nb.children.get(childByte)
		if !ok {
			addChild[V](nb, schema, a)
			return nb
		}
		merged := mergeUnion[V](schema, a, child, bDepth+1)
		nb.h = nb.h.xor(child.hash()).xor(merged.hash())
		nb.leafCount_ += merged.leafCount() - child.leafCount()
		nb.children.put(childByte, merged)
		return nb
	default:
		if aDepth == schema.KeyLen {
			// Both sides are leaves for the same key (no divergence was
			// found across the full key); a's value wins.
			return a
		}
		ab := a.(*branch[V])
		bb := b.(*branch[V])
		nb := ab.cloneShallow()
		bb.children.each(func(childByte byte, bChild node[V]) {
			child, ok := nb.children.get(childByte)
			if !ok {
				addChild[V](nb, schema, bChild)
				return
			}
			merged := mergeUnion[V](schema, child, bChild, aDepth+1)
			nb.h = nb.h.xor(child.hash()).xor(merged.hash())
			nb.leafCount_ += merged.leafCount() - child.leafCount()
			nb.children.put(childByte, merged)
		})
		return nb
	}
}

// mergeIntersect recursively computes the keys a and b have in common,
// keeping a's values, with the same digest short-circuit and
// divergence check as mergeUnion.
func mergeIntersect[V any](schema *Schema, a, b node[V], depth int) node[V] {
	if a.hash() == b.hash() {
		return a
	}
	if _, diverged := firstDivergence[V](schema, a, b, depth); diverged {
		return nil
	}
	aDepth, bDepth := a.endDepth(), b.endDepth()
	switch {
	case aDepth < bDepth:
		ab := a.(*branch[V])
		child, ok := ab.children.get(byteAt(schema, b.representative(), aDepth))
		if !ok {
			return nil
		}
		return mergeIntersect[V](schema, child, b, aDepth+1)
	case bDepth < aDepth:
		bb := b.(*branch[V])
		child, ok := bb.children.get(byteAt(schema, a.representative(), bDepth))
		if !ok {
			return nil
		}
		return mergeIntersect[V](schema, a, child, bDepth+1)
	default:
		if aDepth == schema.KeyLen {
			return a
		}
		ab := a.(*branch[V])
		bb := b.(*branch[V])
		var kept []node[V]
		ab.children.each(func(childByte byte, aChild node[V]) {
			bChild, ok := bb.children.get(childByte)
			if !ok {
				return
			}
			if m := mergeIntersect[V](schema, aChild, bChild, aDepth+1); m != nil {
				kept = append(kept, m)
			}
		})
		if len(kept) == 0 {
			return nil
		}
		if len(kept) == 1 {
			return kept[0]
		}
		out := joinAt[V](schema, aDepth, kept[0], kept[1])
		for _, m := range kept[2:] {
			addChild[V](out, schema, m)
		}
		return out
	}
}

// mergeDifference recursively removes from a every key also present in
// b, with the same digest short-circuit and divergence check as
// mergeUnion. Unlike Union/Intersect this is asymmetric: subtrees of a
// that b's structure cannot reach at all survive unexamined.
func mergeDifference[V any](schema *Schema, a, b node[V], depth int) node[V] {
	if a.hash() == b.hash() {
		return nil
	}
	if _, diverged := firstDivergence[V](schema, a, b, depth); diverged {
		return a
	}
	aDepth, bDepth := a.endDepth(), b.endDepth()
	switch {
	case aDepth < bDepth:
		ab := a.(*branch[V])
		childByte := byteAt(schema, b.representative(), aDepth)
		child, ok := ab.children.get(childByte)
		if !ok {
			return a
		}
		nb := ab.cloneShallow()
		diffed := mergeDifference[V](schema, child, b, aDepth+1)
		if diffed == nil {
			nb.children.remove(childByte)
			nb.h = nb.h.xor(child.hash())
			nb.leafCount_ -= child.leafCount()
		} else {
			nb.h = nb.h.xor(child.hash()).xor(diffed.hash())
			nb.leafCount_ += diffed.leafCount() - child.leafCount()
			nb.children.put(childByte, diffed)
		}
		return collapseOrNil[V](nb)
	case bDepth < aDepth:
		bb := b.(*branch[V])
		child, ok := bb.children.get(byteAt(schema, a.representative(), bDepth))
		if !ok {
			return a
		}
		return mergeDifference[V](schema, a, child, bDepth+1)
	default:
		if aDepth == schema.KeyLen {
			return nil
		}
		ab := a.(*branch[V])
		bb := b.(*branch[V])
		var kept []node[V]
		ab.children.each(func(childByte byte, aChild node[V]) {
			bChild, ok := bb.children.get(childByte)
			if !ok {
				kept = append(kept, aChild)
				return
			}
			if d := mergeDifference[V](schema, aChild, bChild, aDepth+1); d != nil {
				kept = append(kept, d)
			}
		})
		if len(kept) == 0 {
			return nil
		}
		if len(kept) == 1 {
			return kept[0]
		}
		out := joinAt[V](schema, aDepth, kept[0], kept[1])
		for _, k := range kept[2:] {
			addChild[V](out, schema, k)
		}
		return out
	}
}
