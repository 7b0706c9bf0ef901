// Package archive implements a frozen, single-pass-built image of a
// TribleSet: a deduplicated value domain plus, per trible ordering, a
// sorted table of domain-index rows and a roaring bitmap marking where
// each ordering's leading pair of fields changes. Pattern queries
// against an archive return the same results a live TribleSet would.
package archive

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/triblespace/tribles-go/internal/tlog"
	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/patch"
)

// row is one trible reduced to three domain indices, in the order a
// given ordering sorts on: (p0, p1, trailing).
type row struct {
	p0, p1, trailing uint32
}

// facet holds one ordering's sorted rows and the bitmap marking where
// its leading pair of fields (p0, p1) changes from the previous row.
type facet struct {
	rows    []row
	changed *roaring.Bitmap
}

// SuccinctArchive is a frozen image of a TribleSet. The zero value is
// not usable; build one with Build or Open.
type SuccinctArchive struct {
	domain []tribles.RawValue

	entityCount, attributeCount, valueCount int

	// eA, aA, vA hold the same bits as the changed bitmaps of the
	// EAV/AEV/VEA facets respectively: each marks the rows where that
	// ordering's leading pair of fields changes. They are not
	// per-domain-element prefix sums.
	eA, aA, vA *roaring.Bitmap

	eav, eva, aev, ave, vea, vae facet

	decoded *lru.Cache[string, *patch.PATCH[struct{}]]
}

func newArchive() *SuccinctArchive {
	c, _ := lru.New[string, *patch.PATCH[struct{}]](6)
	return &SuccinctArchive{decoded: c}
}

// facetTriple returns a trible's entity, attribute, and value as
// 32-byte domain members: entity and attribute are GenId-padded (16
// zero bytes ‖ id), the value is used as-is.
func facetTriple(t tribles.Trible) (e, a, v tribles.RawValue) {
	ei, ai := t.E(), t.A()
	copy(e[16:], ei[:])
	copy(a[16:], ai[:])
	return e, a, t.V()
}

// Build constructs a SuccinctArchive from set in one pass.
func Build(set *tribles.TribleSet) *SuccinctArchive {
	var items []tribles.Trible
	set.Each(func(t tribles.Trible) { items = append(items, t) })
	tlog.Debug("archive build: collected tribles", "tribles", len(items))

	eSet, aSet, vSet := map[tribles.RawValue]struct{}{}, map[tribles.RawValue]struct{}{}, map[tribles.RawValue]struct{}{}
	all := map[tribles.RawValue]struct{}{}
	for _, t := range items {
		e, a, v := facetTriple(t)
		eSet[e] = struct{}{}
		aSet[a] = struct{}{}
		vSet[v] = struct{}{}
		all[e] = struct{}{}
		all[a] = struct{}{}
		all[v] = struct{}{}
	}
	domain := make([]tribles.RawValue, 0, len(all))
	for v := range all {
		domain = append(domain, v)
	}
	sort.Slice(domain, func(i, j int) bool { return bytes.Compare(domain[i][:], domain[j][:]) < 0 })
	index := make(map[tribles.RawValue]uint32, len(domain))
	for i, v := range domain {
		index[v] = uint32(i)
	}

	a := newArchive()
	a.domain = domain
	a.entityCount, a.attributeCount, a.valueCount = len(eSet), len(aSet), len(vSet)
	tlog.Debug("archive build: deduplicated domain",
		"domain", len(domain), "entities", a.entityCount, "attributes", a.attributeCount, "values", a.valueCount)

	a.eav, a.eA = buildFacet(items, index, func(e, a, v tribles.RawValue) (p0, p1, tr tribles.RawValue) { return e, a, v })
	tlog.Debug("archive build: facet done", "facet", "EAV", "rows", len(a.eav.rows))
	a.eva, _ = buildFacet(items, index, func(e, a, v tribles.RawValue) (p0, p1, tr tribles.RawValue) { return e, v, a })
	tlog.Debug("archive build: facet done", "facet", "EVA", "rows", len(a.eva.rows))
	a.aev, a.aA = buildFacet(items, index, func(e, a, v tribles.RawValue) (p0, p1, tr tribles.RawValue) { return a, e, v })
	tlog.Debug("archive build: facet done", "facet", "AEV", "rows", len(a.aev.rows))
	a.ave, _ = buildFacet(items, index, func(e, a, v tribles.RawValue) (p0, p1, tr tribles.RawValue) { return a, v, e })
	tlog.Debug("archive build: facet done", "facet", "AVE", "rows", len(a.ave.rows))
	a.vea, a.vA = buildFacet(items, index, func(e, a, v tribles.RawValue) (p0, p1, tr tribles.RawValue) { return v, e, a })
	tlog.Debug("archive build: facet done", "facet", "VEA", "rows", len(a.vea.rows))
	a.vae, _ = buildFacet(items, index, func(e, a, v tribles.RawValue) (p0, p1, tr tribles.RawValue) { return v, a, e })
	tlog.Debug("archive build: facet done", "facet", "VAE", "rows", len(a.vae.rows))
	tlog.Info("archive build: done", "tribles", len(items), "domain", len(domain))
	return a
}

// buildFacet sorts items by the (p0, p1, trailing) projection key
// extracts and returns the resulting domain-index rows plus the
// change bitmap over (p0, p1).
func buildFacet(items []tribles.Trible, index map[tribles.RawValue]uint32, key func(e, a, v tribles.RawValue) (p0, p1, trailing tribles.RawValue)) (facet, *roaring.Bitmap) {
	type keyed struct {
		p0, p1, trailing tribles.RawValue
	}
	rows := make([]keyed, len(items))
	for i, t := range items {
		e, a, v := facetTriple(t)
		p0, p1, tr := key(e, a, v)
		rows[i] = keyed{p0, p1, tr}
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := bytes.Compare(rows[i].p0[:], rows[j].p0[:]); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(rows[i].p1[:], rows[j].p1[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(rows[i].trailing[:], rows[j].trailing[:]) < 0
	})
	out := make([]row, len(rows))
	changed := roaring.New()
	var prevP0, prevP1 tribles.RawValue
	for i, r := range rows {
		out[i] = row{p0: index[r.p0], p1: index[r.p1], trailing: index[r.trailing]}
		if i == 0 || r.p0 != prevP0 || r.p1 != prevP1 {
			changed.Add(uint32(i))
		}
		prevP0, prevP1 = r.p0, r.p1
	}
	return facet{rows: out, changed: changed}, changed
}

// decode materializes one ordering's facet into a *patch.PATCH keyed
// and segmented like a live TribleSet's, caching the result.
func (a *SuccinctArchive) decode(name string, f facet, layout func(p0, p1, trailing tribles.RawValue) []byte, schema *patch.Schema) *patch.PATCH[struct{}] {
	if cached, ok := a.decoded.Get(name); ok {
		return cached
	}
	p := patch.New[struct{}](schema)
	for _, r := range f.rows {
		key := layout(a.domain[r.p0], a.domain[r.p1], a.domain[r.trailing])
		p.Insert(key, struct{}{})
	}
	a.decoded.Add(name, p)
	return p
}

func eavLayout(e, a, v tribles.RawValue) []byte {
	var key [64]byte
	copy(key[0:16], e[16:32])
	copy(key[16:32], a[16:32])
	copy(key[32:64], v[:])
	return key[:]
}

func evaLayout(e, v, a tribles.RawValue) []byte { return eavLayout(e, a, v) }
func aevLayout(a, e, v tribles.RawValue) []byte { return eavLayout(e, a, v) }
func aveLayout(a, v, e tribles.RawValue) []byte { return eavLayout(e, a, v) }
func veaLayout(v, e, a tribles.RawValue) []byte { return eavLayout(e, a, v) }
func vaeLayout(v, a, e tribles.RawValue) []byte { return eavLayout(e, a, v) }

func (a *SuccinctArchive) EAV() *patch.PATCH[struct{}] {
	return a.decode("EAV", a.eav, eavLayout, patch.EAV)
}
func (a *SuccinctArchive) EVA() *patch.PATCH[struct{}] {
	return a.decode("EVA", a.eva, evaLayout, patch.EVA)
}
func (a *SuccinctArchive) AEV() *patch.PATCH[struct{}] {
	return a.decode("AEV", a.aev, aevLayout, patch.AEV)
}
func (a *SuccinctArchive) AVE() *patch.PATCH[struct{}] {
	return a.decode("AVE", a.ave, aveLayout, patch.AVE)
}
func (a *SuccinctArchive) VEA() *patch.PATCH[struct{}] {
	return a.decode("VEA", a.vea, veaLayout, patch.VEA)
}
func (a *SuccinctArchive) VAE() *patch.PATCH[struct{}] {
	return a.decode("VAE", a.vae, vaeLayout, patch.VAE)
}

// Len returns the number of tribles the archive holds.
func (a *SuccinctArchive) Len() uint64 { return uint64(len(a.eav.rows)) }

// Contains reports whether t is present, via the EAV ordering.
func (a *SuccinctArchive) Contains(t tribles.Trible) bool {
	return a.EAV().HasPrefix(t[:])
}

// Each calls f once per stored trible, in EAV order.
func (a *SuccinctArchive) Each(f func(tribles.Trible)) {
	a.EAV().EachOrdered(func(key []byte, _ struct{}) {
		var t tribles.Trible
		copy(t[:], key)
		f(t)
	})
}

// Equal reports whether a and set hold the same tribles.
func (a *SuccinctArchive) Equal(set *tribles.TribleSet) bool {
	if a.Len() != set.Len() {
		return false
	}
	equal := true
	a.Each(func(t tribles.Trible) {
		if !set.Contains(t) {
			equal = false
		}
	})
	return equal
}
