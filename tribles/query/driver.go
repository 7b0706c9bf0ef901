package query

import (
	"iter"
	"sort"

	"github.com/triblespace/tribles-go/internal/tlog"
	"github.com/triblespace/tribles-go/tribles"
)

// Find runs constraint's depth-first, worst-case-optimal join and
// yields one Binding per satisfying assignment of every variable
// constraint mentions. vars documents which of those variables the
// caller actually wants to read off each yielded Binding (via
// Binding.Get) and is checked against constraint.Variables(); every
// mentioned variable is still solved; Find does not project them out
// of the Binding.
//
// The returned sequence is a pull iterator: nothing runs until the
// caller ranges over it, and stopping early (a break in the range, or
// simply not resuming) always leaves the search in a safe, inert
// state with no cleanup required.
func Find(vars []VariableId, constraint Constraint) iter.Seq[*Binding] {
	return func(yield func(*Binding) bool) {
		all := constraint.Variables()
		for _, v := range vars {
			if !all.IsSet(v) {
				panic("query: find: requested variable not mentioned by constraint")
			}
		}
		d := &driver{constraint: constraint, binding: NewBinding(), estimates: map[VariableId]uint64{}}
		var unbound []VariableId
		all.Each(func(v VariableId) {
			d.estimates[v] = d.estimate(v)
			unbound = append(unbound, v)
		})
		d.sortUnbound(unbound)
		d.search(unbound, yield)
	}
}

// driver holds the mutable state of one Find call: the binding built
// up so far and the constraint's estimate for every variable not yet
// bound, refreshed only for the variables a newly bound value can
// influence.
type driver struct {
	constraint Constraint
	binding    *Binding
	estimates  map[VariableId]uint64
}

func (d *driver) estimate(v VariableId) uint64 {
	est, ok := d.constraint.Estimate(v, d.binding)
	if !ok {
		panic("query: find: variable not mentioned by constraint")
	}
	return est
}

func (d *driver) influenceCount(v VariableId) int {
	return influence(d.constraint, v).Count()
}

// sortUnbound orders unbound ascending by estimate bucket
// (⌈log2(estimate+1)⌉), breaking ties toward the variable that
// influences the most others — the variable at index 0 is always the
// next one search should bind.
func (d *driver) sortUnbound(unbound []VariableId) {
	sort.SliceStable(unbound, func(i, j int) bool {
		ei, ej := log2Ceil(d.estimates[unbound[i]]), log2Ceil(d.estimates[unbound[j]])
		if ei != ej {
			return ei < ej
		}
		return d.influenceCount(unbound[i]) > d.influenceCount(unbound[j])
	})
}

// search implements NextVariable/NextValue/Backtrack over the
// remaining unbound variables, calling yield once per fully bound
// tuple. It returns false once yield has asked to stop, so every
// enclosing call unwinds without visiting further candidates.
func (d *driver) search(unbound []VariableId, yield func(*Binding) bool) bool {
	if len(unbound) == 0 {
		return yield(d.binding)
	}

	v := unbound[0]
	rest := unbound[1:]

	var values []tribles.RawValue
	d.constraint.Propose(v, d.binding, &values)
	d.constraint.Confirm(v, d.binding, &values)
	tlog.Debug("query: propose", "variable", v, "candidates", len(values), "remaining", len(rest))

	influenced := influence(d.constraint, v)

	for _, val := range values {
		d.binding.Set(v, val)

		next := append([]VariableId{}, rest...)
		for _, w := range next {
			if influenced.IsSet(w) {
				d.estimates[w] = d.estimate(w)
			}
		}
		d.sortUnbound(next)

		if !d.search(next, yield) {
			d.binding.Unset(v)
			return false
		}
		d.binding.Unset(v)
		tlog.Debug("query: backtrack", "variable", v)
	}
	return true
}
