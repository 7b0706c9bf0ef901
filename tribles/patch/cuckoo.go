package patch

import (
	"crypto/rand"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/btree"

	"github.com/triblespace/tribles-go/internal/mathutil"
)

// minCuckooCap is the smallest child table size a branch is ever given:
// two slots, enough to hold the two children produced by a leaf split.
const minCuckooCap = 2

// maxCuckooCap bounds table growth at one slot per possible byte value.
const maxCuckooCap = 256

const maxKicks = 48

var (
	permOnce     sync.Once
	permA, permB [256]byte
)

// startCuckooCap is the capacity newly joined branches request before
// any entries are known; Options.CuckooStartCapacity overrides it.
var startCuckooCap = minCuckooCap

// SetStartCapacity overrides the table size new branches start at,
// rounded up to the next power of two the cuckoo table supports. It is
// meant to be called once, at process setup, not tuned mid-run.
func SetStartCapacity(n int) {
	c := mathutil.NextPow2(n)
	if c < minCuckooCap {
		c = minCuckooCap
	}
	if c > maxCuckooCap {
		c = maxCuckooCap
	}
	startCuckooCap = c
}

// initPerms builds the two probe permutations a process uses for every
// cuckoo table's h1/h2, seeded from crypto/rand and shuffled with
// xxhash-derived pseudorandom draws (a Fisher-Yates pass keyed by
// xxhash.Sum64 of the seed and a counter, rather than reaching for a
// second CSPRNG call per swap).
func initPerms() {
	var seed [16]byte
	_, _ = rand.Read(seed[:])
	for i := range permA {
		permA[i] = byte(i)
		permB[i] = byte(i)
	}
	shuffle(&permA, seed[:8])
	shuffle(&permB, seed[8:])
}

func shuffle(p *[256]byte, nonce []byte) {
	for i := 255; i > 0; i-- {
		var buf [9]byte
		copy(buf[:8], nonce)
		buf[8] = byte(i)
		j := int(xxhash.Sum64(buf[:]) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}
}

type slot[V any] struct {
	used    bool
	keyByte byte
	n       node[V]
}

// cuckoo is a branch's child table: at most 256 entries, each keyed by
// the single byte that selects it, resolved by two independent
// permutation probes with bounded-kick eviction and grow-by-doubling on
// exhaustion, as described for the trie's child representation.
type cuckoo[V any] struct {
	slots []slot[V]
	cap   int
}

func newCuckoo[V any](capHint int) *cuckoo[V] {
	permOnce.Do(initPerms)
	c := mathutil.NextPow2(capHint)
	if c < minCuckooCap {
		c = minCuckooCap
	}
	if c > maxCuckooCap {
		c = maxCuckooCap
	}
	return &cuckoo[V]{slots: make([]slot[V], c), cap: c}
}

func (c *cuckoo[V]) clone() *cuckoo[V] {
	nc := &cuckoo[V]{slots: make([]slot[V], len(c.slots)), cap: c.cap}
	copy(nc.slots, c.slots)
	return nc
}

func (c *cuckoo[V]) probe1(b byte) int { return int(permA[b]) & (c.cap - 1) }
func (c *cuckoo[V]) probe2(b byte) int { return int(permB[b]) & (c.cap - 1) }

func (c *cuckoo[V]) get(b byte) (node[V], bool) {
	if i := c.probe1(b); c.slots[i].used && c.slots[i].keyByte == b {
		return c.slots[i].n, true
	}
	if i := c.probe2(b); c.slots[i].used && c.slots[i].keyByte == b {
		return c.slots[i].n, true
	}
	var zero node[V]
	return zero, false
}

// put inserts or overwrites the entry for b, growing the table (doubling
// capacity, up to maxCuckooCap) as many times as needed to place it.
// The receiver must be a table the caller already owns exclusively
// (freshly cloned or newly allocated); put never mutates a shared one.
func (c *cuckoo[V]) put(b byte, n node[V]) {
	saved := c.clone()
	for !c.tryPut(b, n) {
		// A failed tryPut leaves its last evictee out of the table;
		// restore the table as it was before growing and retrying.
		c.slots, c.cap = saved.slots, saved.cap
		c.grow()
		saved = c.clone()
	}
}

func (c *cuckoo[V]) tryPut(b byte, n node[V]) bool {
	kb, kn := b, n
	evictFirst := true
	for kick := 0; kick < maxKicks; kick++ {
		i1 := c.probe1(kb)
		if !c.slots[i1].used || c.slots[i1].keyByte == kb {
			c.slots[i1] = slot[V]{used: true, keyByte: kb, n: kn}
			return true
		}
		i2 := c.probe2(kb)
		if !c.slots[i2].used || c.slots[i2].keyByte == kb {
			c.slots[i2] = slot[V]{used: true, keyByte: kb, n: kn}
			return true
		}
		var evictIdx int
		if evictFirst {
			evictIdx = i1
		} else {
			evictIdx = i2
		}
		evictFirst = !evictFirst
		evicted := c.slots[evictIdx]
		c.slots[evictIdx] = slot[V]{used: true, keyByte: kb, n: kn}
		kb, kn = evicted.keyByte, evicted.n
	}
	return false
}

func (c *cuckoo[V]) grow() {
	if c.cap >= maxCuckooCap {
		// every byte value already has a dedicated slot; a well-formed
		// table can never exhaust kicks at this size.
		return
	}
	old := c.slots
	c.cap = mathutil.NextPow2(c.cap + 1)
	c.slots = make([]slot[V], c.cap)
	for _, s := range old {
		if s.used {
			// extremely unlikely at double size to run out of kicks;
			// put then grows again, keeping every entry placed so far.
			c.put(s.keyByte, s.n)
		}
	}
}

func (c *cuckoo[V]) remove(b byte) {
	if i := c.probe1(b); c.slots[i].used && c.slots[i].keyByte == b {
		c.slots[i] = slot[V]{}
		return
	}
	if i := c.probe2(b); c.slots[i].used && c.slots[i].keyByte == b {
		c.slots[i] = slot[V]{}
	}
}

func (c *cuckoo[V]) count() int {
	n := 0
	for _, s := range c.slots {
		if s.used {
			n++
		}
	}
	return n
}

// only returns the sole occupant of a one-entry table, used when a
// branch collapses after a removal leaves it with a single child.
func (c *cuckoo[V]) only() (byte, node[V]) {
	for _, s := range c.slots {
		if s.used {
			return s.keyByte, s.n
		}
	}
	var zero node[V]
	return 0, zero
}

// each calls f for every occupied slot in unspecified (physical) order.
func (c *cuckoo[V]) each(f func(keyByte byte, n node[V])) {
	for _, s := range c.slots {
		if s.used {
			f(s.keyByte, s.n)
		}
	}
}

// eachSorted calls f for every occupied slot in ascending key-byte
// order, used by the key-ordered iterator. google/btree's generic
// B-tree gives the ordering a short-lived sort buffer of at most 256
// entries without hand-rolling one.
func (c *cuckoo[V]) eachSorted(f func(keyByte byte, n node[V])) {
	if c.count() == 0 {
		return
	}
	type entry struct {
		b byte
		n node[V]
	}
	less := func(a, b entry) bool { return a.b < b.b }
	bt := btree.NewG(8, less)
	c.each(func(keyByte byte, n node[V]) {
		bt.ReplaceOrInsert(entry{b: keyByte, n: n})
	})
	bt.Ascend(func(e entry) bool {
		f(e.b, e.n)
		return true
	})
}
