// Package patch implements PATCH: a Persistent Adaptive trie with
// Cuckoo-compressed child tables and Hash-maintained subtree digests.
//
// A PATCH is parameterised at construction time by a Schema, which
// pairs a byte-position permutation (the "key ordering") with a fixed
// three-way segmentation. A Schema is an ordinary value built once
// per ordering (EAV, EVA, ... below) and threaded through the PATCH's
// operations rather than baked into its type parameter.
package patch

// Segment identifies which logical field (entity/attribute/value, or a
// single undifferentiated segment for non-trible keys) a tree-ordered
// byte position belongs to.
type Segment uint8

const (
	SegmentE Segment = iota
	SegmentA
	SegmentV
)

// Schema describes how a PATCH physically walks a logical key: KeyToTree
// maps a byte's position in the caller-supplied key to its depth in the
// trie, TreeToKey is its inverse, and Segments records which segment
// owns each tree depth (used by segmented_len and infixes' segment-
// alignment check).
type Schema struct {
	Name      string
	KeyLen    int
	KeyToTree []uint8
	TreeToKey []uint8
	Segments  []Segment
}

// byteAt returns the byte of key found at tree depth d under schema.
func byteAt(schema *Schema, key []byte, d int) byte {
	return key[schema.TreeToKey[d]]
}

// diverge scans tree depths [start,end) and returns the first depth at
// which a and b differ, or end if they agree throughout.
func diverge(schema *Schema, a, b []byte, start, end int) int {
	for d := start; d < end; d++ {
		ti := schema.TreeToKey[d]
		if a[ti] != b[ti] {
			return d
		}
	}
	return end
}

// segmentAligned reports whether [start,end) lies wholly within one
// segment of schema, the constraint infixes() enforces.
func segmentAligned(schema *Schema, start, end int) bool {
	if start >= end {
		return true
	}
	seg := schema.Segments[start]
	for d := start + 1; d < end; d++ {
		if schema.Segments[d] != seg {
			return false
		}
	}
	return true
}

// newSchema builds a Schema from a key-to-tree permutation, deriving
// the inverse mapping and the per-depth segment labels from it
// directly (rather than from the package-level Schema var this call
// is constructing, which is not yet assigned while it runs).
func newSchema(name string, keyToTree [64]uint8) *Schema {
	treeToKey := make([]uint8, 64)
	for k, t := range keyToTree {
		treeToKey[t] = uint8(k)
	}
	segments := make([]Segment, 64)
	for d := 0; d < 64; d++ {
		segments[d] = tribleSegmentOf(int(treeToKey[d]))
	}
	return &Schema{
		Name:      name,
		KeyLen:    64,
		KeyToTree: keyToTree[:],
		TreeToKey: treeToKey,
		Segments:  segments,
	}
}

func tribleSegmentOf(keyIndex int) Segment {
	switch {
	case keyIndex < 16:
		return SegmentE
	case keyIndex < 32:
		return SegmentA
	default:
		return SegmentV
	}
}

// The six trible orderings, transcribed byte-for-byte from the
// reference tree_index/key_index match arms (EAV identity, the other
// five permuting 16-byte E/A blocks and the 32-byte V block).
var (
	EAV = newSchema("EAV", identityPerm())
	EVA = newSchema("EVA", evaPerm())
	AEV = newSchema("AEV", aevPerm())
	AVE = newSchema("AVE", avePerm())
	VEA = newSchema("VEA", veaPerm())
	VAE = newSchema("VAE", vaePerm())
)

func identityPerm() (p [64]uint8) {
	for i := range p {
		p[i] = uint8(i)
	}
	return p
}

// evaPerm: E stays [0,16); A (key [16,32)) moves to [48,64); V (key
// [32,64)) moves to [16,48).
func evaPerm() (p [64]uint8) {
	for d := 0; d < 16; d++ {
		p[d] = uint8(d)
	}
	for d := 16; d < 32; d++ {
		p[d] = uint8(d + 32)
	}
	for d := 32; d < 64; d++ {
		p[d] = uint8(d - 16)
	}
	return p
}

// aevPerm: E moves to [16,32); A moves to [0,16); V stays [32,64).
func aevPerm() (p [64]uint8) {
	for d := 0; d < 16; d++ {
		p[d] = uint8(d + 16)
	}
	for d := 16; d < 32; d++ {
		p[d] = uint8(d - 16)
	}
	for d := 32; d < 64; d++ {
		p[d] = uint8(d)
	}
	return p
}

// avePerm: E moves to [48,64); A moves to [0,16); V moves to [16,48).
func avePerm() (p [64]uint8) {
	for d := 0; d < 16; d++ {
		p[d] = uint8(d + 48)
	}
	for d := 16; d < 32; d++ {
		p[d] = uint8(d - 16)
	}
	for d := 32; d < 64; d++ {
		p[d] = uint8(d - 16)
	}
	return p
}

// veaPerm: E moves to [32,48); A moves to [48,64); V moves to [0,32).
func veaPerm() (p [64]uint8) {
	for d := 0; d < 16; d++ {
		p[d] = uint8(d + 32)
	}
	for d := 16; d < 32; d++ {
		p[d] = uint8(d + 32)
	}
	for d := 32; d < 64; d++ {
		p[d] = uint8(d - 32)
	}
	return p
}

// vaePerm: E moves to [48,64); A moves to [32,48); V moves to [0,32).
func vaePerm() (p [64]uint8) {
	for d := 0; d < 16; d++ {
		p[d] = uint8(d + 48)
	}
	for d := 16; d < 32; d++ {
		p[d] = uint8(d + 16)
	}
	for d := 32; d < 64; d++ {
		p[d] = uint8(d - 32)
	}
	return p
}

// Identity32 is a trivial single-segment schema over 32-byte keys, used
// by the regular-path constraint's NFA transition table
// (from_state(8) ‖ label_id(16) ‖ to_state(8)), which needs PATCH's
// indexing but none of the trible segmentation.
var Identity32 = func() *Schema {
	keyToTree := make([]uint8, 32)
	segments := make([]Segment, 32)
	for i := range keyToTree {
		keyToTree[i] = uint8(i)
	}
	return &Schema{Name: "Identity32", KeyLen: 32, KeyToTree: keyToTree, TreeToKey: keyToTree, Segments: segments}
}()
