package query

import "github.com/triblespace/tribles-go/tribles"

// Constraint is the query engine's core abstraction: something that
// mentions a fixed set of variables and can, for any one of them,
// estimate how many values are consistent with a partial binding,
// propose candidates, and confirm or reject candidates proposed by
// others.
//
// Implementations must never panic for a variable Variables() claims.
type Constraint interface {
	// Variables returns the fixed set of variables this constraint
	// mentions.
	Variables() *VariableSet

	// Estimate returns an upper (or approximate) bound on the number
	// of distinct values for v consistent with binding. The second
	// return is false iff v is not in Variables().
	//
	// Estimate must be monotone in binding: binding additional
	// variables may only tighten the estimate, never loosen it.
	Estimate(v VariableId, binding *Binding) (uint64, bool)

	// Propose appends candidate values for v, consistent with
	// binding, to *out. It may over-enumerate; confirmers filter.
	Propose(v VariableId, binding *Binding, out *[]tribles.RawValue)

	// Confirm filters *out in place, keeping only values consistent
	// with this constraint under binding.
	Confirm(v VariableId, binding *Binding, out *[]tribles.RawValue)
}

// Influencer is implemented by constraints that can report which
// other variables' estimates may change once v is bound. A constraint
// that does not implement Influencer is treated as influencing every
// other variable it mentions.
type Influencer interface {
	Influence(v VariableId) *VariableSet
}

// influence returns c's declared influence set for v, falling back to
// "every other variable c mentions" when c does not implement
// Influencer.
func influence(c Constraint, v VariableId) *VariableSet {
	if inf, ok := c.(Influencer); ok {
		return inf.Influence(v)
	}
	if !c.Variables().IsSet(v) {
		return NewVariableSet()
	}
	out := c.Variables().Clone()
	out.Unset(v)
	return out
}

func filterValues(out *[]tribles.RawValue, keep func(tribles.RawValue) bool) {
	n := 0
	for _, v := range *out {
		if keep(v) {
			(*out)[n] = v
			n++
		}
	}
	*out = (*out)[:n]
}

func dedupValues(vals []tribles.RawValue) []tribles.RawValue {
	seen := make(map[tribles.RawValue]struct{}, len(vals))
	out := vals[:0]
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
