package patch

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/triblespace/tribles-go/internal/siphash13"
)

// digest is the 128-bit, XOR-commutative subtree hash described by the
// key-independent hashing scheme: every leaf hashes its raw key bytes
// under two independent SipHash-1-3 keyings (hi/lo), and every branch's
// digest is the XOR of its children's digests, so insert/remove only
// ever need to XOR one leaf's contribution in or out rather than
// rehash the whole subtree.
type digest struct {
	hi, lo uint64
}

var (
	digestKeyOnce                                          sync.Once
	digestKey0Hi, digestKey1Hi, digestKey0Lo, digestKey1Lo uint64
)

// initDigestKey seeds the process-wide SipHash key from the OS RNG, the
// same crypto/rand-backed, sync.Once-gated pattern cuckoo.go's
// permOnce/initPerms uses for its probe permutations. The key is never
// persisted and is deliberately different across processes, so two
// processes hashing the same keys never agree by coincidence.
func initDigestKey() {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	digestKey0Hi = binary.LittleEndian.Uint64(seed[0:8])
	digestKey1Hi = binary.LittleEndian.Uint64(seed[8:16])
	digestKey0Lo = binary.LittleEndian.Uint64(seed[16:24])
	digestKey1Lo = binary.LittleEndian.Uint64(seed[24:32])
}

// SetDigestKey pins the process-wide SipHash key instead of letting it
// seed randomly on first use, so deterministic tests can assert on
// exact digest values. It only has an effect the first time it runs
// ahead of any hashing; once the key has latched (randomly or via this
// call) it cannot be changed.
func SetDigestKey(k0hi, k1hi, k0lo, k1lo uint64) {
	digestKeyOnce.Do(func() {
		digestKey0Hi, digestKey1Hi, digestKey0Lo, digestKey1Lo = k0hi, k1hi, k0lo, k1lo
	})
}

func hashKey(key []byte) digest {
	digestKeyOnce.Do(initDigestKey)
	return digest{
		hi: siphash13.Sum64(digestKey0Hi, digestKey1Hi, key),
		lo: siphash13.Sum64(digestKey0Lo, digestKey1Lo, key),
	}
}

func (d digest) xor(o digest) digest {
	return digest{d.hi ^ o.hi, d.lo ^ o.lo}
}

// node is either a *leaf[V] or a *branch[V].
type node[V any] interface {
	hash() digest
	leafCount() uint64
	endDepth() int
	representative() []byte
}

type leaf[V any] struct {
	key      []byte
	value    V
	hasValue bool
	h        digest
}

func newLeaf[V any](key []byte, value V, hasValue bool) *leaf[V] {
	k := make([]byte, len(key))
	copy(k, key)
	return &leaf[V]{key: k, value: value, hasValue: hasValue, h: hashKey(k)}
}

func (l *leaf[V]) hash() digest           { return l.h }
func (l *leaf[V]) leafCount() uint64      { return 1 }
func (l *leaf[V]) endDepth() int          { return len(l.key) }
func (l *leaf[V]) representative() []byte { return l.key }

// branch is an internal PATCH node. Its implicit prefix (the bytes
// shared by every key below it, from its parent's end depth up to its
// own endDepth_) is never stored directly; it is recovered on demand by
// reading the same range out of childleaf, a pointer to one arbitrary
// descendant leaf's key.
type branch[V any] struct {
	endDepth_  int
	h          digest
	leafCount_ uint64
	childleaf  []byte
	children   *cuckoo[V]
}

func (b *branch[V]) hash() digest           { return b.h }
func (b *branch[V]) leafCount() uint64      { return b.leafCount_ }
func (b *branch[V]) endDepth() int          { return b.endDepth_ }
func (b *branch[V]) representative() []byte { return b.childleaf }

// cloneShallow copies the branch header and takes an independent copy
// of its child table (not the children themselves), so the clone can
// be mutated without disturbing a structure some other PATCH, or an
// older generation of this one, still references. Every mutating
// PATCH operation allocates fresh branches along the path it touches
// and shares everything else by reference, which satisfies the
// copy-on-write isolation contract without reasoning about
// concurrent refcounts.
func (b *branch[V]) cloneShallow() *branch[V] {
	nb := &branch[V]{
		endDepth_:  b.endDepth_,
		h:          b.h,
		leafCount_: b.leafCount_,
		childleaf:  b.childleaf,
		children:   b.children.clone(),
	}
	return nb
}
