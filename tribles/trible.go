package tribles

import "errors"

// ErrNilEntity and ErrNilAttribute are returned by NewTrible when the
// entity or attribute half of a fact is the nil id; a value, unlike an
// id, is permitted to be the zero value.
var (
	ErrNilEntity    = errors.New("tribles: entity must not be the nil id")
	ErrNilAttribute = errors.New("tribles: attribute must not be the nil id")
)

// Trible is a single sixty-four-byte fact: a 16-byte entity id, a
// 16-byte attribute id, and a 32-byte value, laid out E ‖ A ‖ V in
// what this package calls EAV order.
type Trible [64]byte

// NewTrible builds a Trible from its three fields, rejecting a nil
// entity or attribute.
func NewTrible(e, a RawId, v RawValue) (Trible, error) {
	if e.IsNil() {
		return Trible{}, ErrNilEntity
	}
	if a.IsNil() {
		return Trible{}, ErrNilAttribute
	}
	var t Trible
	copy(t[0:16], e[:])
	copy(t[16:32], a[:])
	copy(t[32:64], v[:])
	return t, nil
}

// E returns the trible's entity id.
func (t Trible) E() RawId {
	var e RawId
	copy(e[:], t[0:16])
	return e
}

// A returns the trible's attribute id.
func (t Trible) A() RawId {
	var a RawId
	copy(a[:], t[16:32])
	return a
}

// V returns the trible's value.
func (t Trible) V() RawValue {
	var v RawValue
	copy(v[:], t[32:64])
	return v
}
