// Package siphash13 implements SipHash-1-3, the subtree digest primitive
// PATCH uses to keep per-branch hashes XOR-maintainable in O(1).
//
// No dependency in the retrieved corpus implements the 1-3 round variant
// (most ecosystem SipHash packages fix 2-4 rounds), so this is a small,
// self-contained, widely-specified primitive in the style of
// consensus/misc's standalone arithmetic helpers: a handful of exported
// functions, no state beyond the caller-supplied key.
package siphash13

import "encoding/binary"

// Sum64 returns the SipHash-1-3 digest of data keyed by k0, k1.
func Sum64(k0, k1 uint64, data []byte) uint64 {
	v0 := k0 ^ 0x736f6d6570736575
	v1 := k1 ^ 0x646f72616e646f6d
	v2 := k0 ^ 0x6c7967656e657261
	v3 := k1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = rotl(v1, 13)
		v1 ^= v0
		v0 = rotl(v0, 32)
		v2 += v3
		v3 = rotl(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = rotl(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = rotl(v1, 17)
		v1 ^= v2
		v2 = rotl(v2, 32)
	}

	n := len(data)
	end := n - n%8
	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(data[i : i+8])
		v3 ^= m
		round() // 1 compression round
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[end:])
	last[7] = byte(n)
	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	round()
	v0 ^= m

	v2 ^= 0xff
	round() // 3 finalization rounds
	round()
	round()

	return v0 ^ v1 ^ v2 ^ v3
}

func rotl(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}
