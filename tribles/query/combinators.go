package query

import (
	"math/bits"

	"github.com/triblespace/tribles-go/tribles"
)

// IntersectionConstraint combines children as a logical AND: a value
// for v must be proposed by the child with the smallest estimate (the
// "leader", elected fresh on every call since estimates shift as the
// binding grows) and confirmed by every other child. This is the
// leapfrog-triejoin leader-election step.
type IntersectionConstraint struct {
	children []Constraint
}

// And returns the intersection of children.
func And(children ...Constraint) *IntersectionConstraint {
	return &IntersectionConstraint{children: children}
}

func (c *IntersectionConstraint) Variables() *VariableSet {
	out := NewVariableSet()
	for _, ch := range c.children {
		out = out.Union(ch.Variables())
	}
	return out
}

// leader returns the child with the smallest estimate for v, and
// whether any child mentions v at all.
func (c *IntersectionConstraint) leader(v VariableId, binding *Binding) (Constraint, uint64, bool) {
	var best Constraint
	var bestEstimate uint64
	found := false
	for _, ch := range c.children {
		est, ok := ch.Estimate(v, binding)
		if !ok {
			continue
		}
		if !found || est < bestEstimate {
			best, bestEstimate, found = ch, est, true
		}
	}
	return best, bestEstimate, found
}

func (c *IntersectionConstraint) Estimate(v VariableId, binding *Binding) (uint64, bool) {
	_, est, ok := c.leader(v, binding)
	return est, ok
}

func (c *IntersectionConstraint) Propose(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	leader, _, ok := c.leader(v, binding)
	if !ok {
		return
	}
	leader.Propose(v, binding, out)
	for _, ch := range c.children {
		if ch == leader {
			continue
		}
		ch.Confirm(v, binding, out)
	}
}

func (c *IntersectionConstraint) Confirm(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	for _, ch := range c.children {
		if !ch.Variables().IsSet(v) {
			continue
		}
		ch.Confirm(v, binding, out)
	}
}

func (c *IntersectionConstraint) Influence(v VariableId) *VariableSet {
	out := NewVariableSet()
	for _, ch := range c.children {
		out = out.Union(influence(ch, v))
	}
	return out
}

// UnionConstraint combines children as a logical OR: only variables
// every child mentions are exposed, since a value not proposed by one
// branch of the union may still be valid via another.
type UnionConstraint struct {
	children []Constraint
}

// Or returns the union of children.
func Or(children ...Constraint) *UnionConstraint {
	return &UnionConstraint{children: children}
}

func (c *UnionConstraint) Variables() *VariableSet {
	if len(c.children) == 0 {
		return NewVariableSet()
	}
	out := c.children[0].Variables().Clone()
	for _, ch := range c.children[1:] {
		out = out.Intersect(ch.Variables())
	}
	return out
}

func (c *UnionConstraint) Estimate(v VariableId, binding *Binding) (uint64, bool) {
	var sum uint64
	any := false
	for _, ch := range c.children {
		est, ok := ch.Estimate(v, binding)
		if !ok {
			continue
		}
		sum += est
		any = true
	}
	return sum, any
}

func (c *UnionConstraint) Propose(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	start := len(*out)
	for _, ch := range c.children {
		if !ch.Variables().IsSet(v) {
			continue
		}
		ch.Propose(v, binding, out)
	}
	merged := dedupValues((*out)[start:])
	*out = append((*out)[:start], merged...)
}

func (c *UnionConstraint) Confirm(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	filterValues(out, func(val tribles.RawValue) bool {
		for _, ch := range c.children {
			if !ch.Variables().IsSet(v) {
				continue
			}
			candidate := []tribles.RawValue{val}
			ch.Confirm(v, binding, &candidate)
			if len(candidate) == 1 {
				return true
			}
		}
		return false
	})
}

// ConstantConstraint binds v to a single, fixed value.
type ConstantConstraint struct {
	v     VariableId
	value tribles.RawValue
}

// Constant returns a constraint pinning v to value.
func Constant(v VariableId, value tribles.RawValue) *ConstantConstraint {
	return &ConstantConstraint{v: v, value: value}
}

func (c *ConstantConstraint) Variables() *VariableSet { return NewVariableSet(c.v) }

func (c *ConstantConstraint) Estimate(v VariableId, _ *Binding) (uint64, bool) {
	if v != c.v {
		return 0, false
	}
	return 1, true
}

func (c *ConstantConstraint) Propose(v VariableId, _ *Binding, out *[]tribles.RawValue) {
	if v != c.v {
		return
	}
	*out = append(*out, c.value)
}

func (c *ConstantConstraint) Confirm(v VariableId, _ *Binding, out *[]tribles.RawValue) {
	if v != c.v {
		return
	}
	filterValues(out, func(val tribles.RawValue) bool { return val == c.value })
}

// ContainsConstraint binds v to membership in a fixed in-memory set,
// given as a slice of candidate values (e.g. the keys of a Go map the
// caller already has in hand).
type ContainsConstraint struct {
	v      VariableId
	values map[tribles.RawValue]struct{}
}

// Contains returns a constraint pinning v to membership in values.
func Contains(v VariableId, values []tribles.RawValue) *ContainsConstraint {
	set := make(map[tribles.RawValue]struct{}, len(values))
	for _, val := range values {
		set[val] = struct{}{}
	}
	return &ContainsConstraint{v: v, values: set}
}

func (c *ContainsConstraint) Variables() *VariableSet { return NewVariableSet(c.v) }

func (c *ContainsConstraint) Estimate(v VariableId, _ *Binding) (uint64, bool) {
	if v != c.v {
		return 0, false
	}
	return uint64(len(c.values)), true
}

func (c *ContainsConstraint) Propose(v VariableId, _ *Binding, out *[]tribles.RawValue) {
	if v != c.v {
		return
	}
	for val := range c.values {
		*out = append(*out, val)
	}
}

func (c *ContainsConstraint) Confirm(v VariableId, _ *Binding, out *[]tribles.RawValue) {
	if v != c.v {
		return
	}
	filterValues(out, func(val tribles.RawValue) bool {
		_, ok := c.values[val]
		return ok
	})
}

// log2Ceil returns ⌈log2(n+1)⌉, the query driver's estimate bucketing
// function (see Run's sort key).
func log2Ceil(n uint64) int {
	if n == 0 {
		return 0
	}
	return bits.Len64(n)
}
