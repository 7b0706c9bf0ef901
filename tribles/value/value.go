// Package value implements the RawValue encodings referenced
// abstractly by the core engine: how an attribute's schema turns a Go
// value into the 32 opaque bytes a PATCH actually stores and compares.
package value

import (
	"errors"
	"fmt"

	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/id"
)

// ErrStringTooLong is returned when a ShortString encoding would not
// fit in the 32-byte value.
var ErrStringTooLong = errors.New("value: string exceeds 32 bytes")

// GenIdEncode packs an Id into a RawValue: 16 zero bytes followed by
// the id, so a GenId-schema'd value round-trips through the same
// 32-byte slot every other schema uses.
func GenIdEncode(i id.Id) tribles.RawValue {
	var v tribles.RawValue
	copy(v[16:], i[:])
	return v
}

// GenIdDecode extracts the Id packed by GenIdEncode, failing if the
// leading 16 bytes are not all zero or the trailing id is nil.
func GenIdDecode(v tribles.RawValue) (id.Id, error) {
	var zero [16]byte
	if [16]byte(v[:16]) != zero {
		return id.Id{}, fmt.Errorf("value: GenIdDecode: leading bytes not zero")
	}
	var raw [16]byte
	copy(raw[:], v[16:])
	got, err := id.New(raw)
	if err != nil {
		return id.Id{}, fmt.Errorf("value: GenIdDecode: %w", err)
	}
	return got, nil
}

// ShortStringEncode packs a UTF-8 string of at most 32 bytes into a
// RawValue, NUL-padded on the right.
func ShortStringEncode(s string) (tribles.RawValue, error) {
	if len(s) > 32 {
		return tribles.RawValue{}, ErrStringTooLong
	}
	var v tribles.RawValue
	copy(v[:], s)
	return v, nil
}

// ShortStringDecode recovers the string packed by ShortStringEncode,
// trimming the NUL padding.
func ShortStringDecode(v tribles.RawValue) string {
	n := len(v)
	for n > 0 && v[n-1] == 0 {
		n--
	}
	return string(v[:n])
}

// Hash is a raw 32-byte content digest, the RawValue encoding used by
// blob handles (tribles/blob).
type Hash = tribles.RawValue
