package query

import (
	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/patch"
)

// Term is one of a Trible pattern's three positions: either a fixed
// value or a query variable to be bound.
type Term struct {
	isVar bool
	v     VariableId
	val   tribles.RawValue
}

// Var returns a Term that binds v.
func Var(v VariableId) Term { return Term{isVar: true, v: v} }

// Const returns a Term fixed to val.
func Const(val tribles.RawValue) Term { return Term{val: val} }

func (t Term) resolve(binding *Binding) (tribles.RawValue, bool) {
	if !t.isVar {
		return t.val, true
	}
	return binding.Get(t.v)
}

// role identifies which third of a trible a Term occupies.
type role int

const (
	roleE role = iota
	roleA
	roleV
)

// patternSet is the source this constraint queries: anything exposing
// the six trible orderings the way *tribles.TribleSet does, so the
// same constraint type also serves a frozen succinct archive (which
// implements the identical accessor surface).
type patternSet interface {
	EAV() *patch.PATCH[struct{}]
	EVA() *patch.PATCH[struct{}]
	AEV() *patch.PATCH[struct{}]
	AVE() *patch.PATCH[struct{}]
	VEA() *patch.PATCH[struct{}]
	VAE() *patch.PATCH[struct{}]
}

// TriblePattern is the constraint `pattern(e, a, v)` places on a
// trible source: for each of its variables, it answers estimate and
// propose with a single segmented_len/infixes call against whichever
// of the six orderings puts the currently-bound roles first, per the
// fixed 7-state table in the component design.
type TriblePattern struct {
	src       patternSet
	e, a, v   Term
	variables *VariableSet
}

// Pattern returns the constraint for e, a, v against src.
func Pattern(src patternSet, e, a, v Term) *TriblePattern {
	vars := NewVariableSet()
	for _, t := range []Term{e, a, v} {
		if t.isVar {
			vars.Set(t.v)
		}
	}
	return &TriblePattern{src: src, e: e, a: a, v: v, variables: vars}
}

func (p *TriblePattern) Variables() *VariableSet { return p.variables.Clone() }

func (p *TriblePattern) termFor(r role) Term {
	switch r {
	case roleE:
		return p.e
	case roleA:
		return p.a
	default:
		return p.v
	}
}

// roleOf returns the role variable v occupies in this pattern and
// whether v is in fact one of this pattern's three terms.
func (p *TriblePattern) roleOf(v VariableId) (role, bool) {
	if p.e.isVar && p.e.v == v {
		return roleE, true
	}
	if p.a.isVar && p.a.v == v {
		return roleA, true
	}
	if p.v.isVar && p.v.v == v {
		return roleV, true
	}
	return 0, false
}

// plan picks the ordering and known-role prefix order for proposing
// role target, given which other roles currently resolve to a value.
// It implements the 12-row table in the component design directly.
func plan(target role, eKnown, aKnown, vKnown bool) (*patch.Schema, []role) {
	switch {
	case target == roleE && !aKnown && !vKnown:
		return patch.EAV, nil
	case target == roleA && !eKnown && !vKnown:
		return patch.AEV, nil
	case target == roleV && !eKnown && !aKnown:
		return patch.VEA, nil
	case target == roleA && eKnown && !vKnown:
		return patch.EAV, []role{roleE}
	case target == roleV && eKnown && !aKnown:
		return patch.EVA, []role{roleE}
	case target == roleE && aKnown && !vKnown:
		return patch.AEV, []role{roleA}
	case target == roleV && aKnown && !eKnown:
		return patch.AVE, []role{roleA}
	case target == roleE && vKnown && !aKnown:
		return patch.VEA, []role{roleV}
	case target == roleA && vKnown && !eKnown:
		return patch.VAE, []role{roleV}
	case target == roleV && eKnown && aKnown:
		return patch.EAV, []role{roleE, roleA}
	case target == roleA && eKnown && vKnown:
		return patch.EVA, []role{roleE, roleV}
	case target == roleE && aKnown && vKnown:
		return patch.AVE, []role{roleA, roleV}
	}
	panic("query: pattern: unreachable bind state")
}

func (p *TriblePattern) patchFor(s *patch.Schema) *patch.PATCH[struct{}] {
	switch s.Name {
	case "EAV":
		return p.src.EAV()
	case "EVA":
		return p.src.EVA()
	case "AEV":
		return p.src.AEV()
	case "AVE":
		return p.src.AVE()
	case "VEA":
		return p.src.VEA()
	case "VAE":
		return p.src.VAE()
	}
	panic("query: pattern: unknown schema " + s.Name)
}

func roleSegBytes(r role) int {
	if r == roleV {
		return 32
	}
	return 16
}

func (p *TriblePattern) Estimate(v VariableId, binding *Binding) (uint64, bool) {
	target, ok := p.roleOf(v)
	if !ok {
		return 0, false
	}
	known, knownVals := p.knownRoles(target, binding)
	schema, order := plan(target, known[roleE], known[roleA], known[roleV])
	prefix := buildPrefix(schema, order, knownVals)
	return p.patchFor(schema).SegmentedLen(prefix, roleSegBytes(target)), true
}

// buildPrefix lays out the known roles' bytes (in order, which may mix
// 16-byte id segments and a 32-byte value segment) into a 64-byte
// natural ("EAV") key and projects the leading bytes through schema's
// tree order.
func buildPrefix(schema *patch.Schema, order []role, values map[role]tribles.RawValue) []byte {
	var natural [64]byte
	for _, r := range order {
		val := values[r]
		switch r {
		case roleE:
			copy(natural[0:16], val[16:32])
		case roleA:
			copy(natural[16:32], val[16:32])
		case roleV:
			copy(natural[32:64], val[:])
		}
	}
	total := 0
	for _, r := range order {
		total += roleSegBytes(r)
	}
	out := make([]byte, total)
	for d := 0; d < total; d++ {
		out[d] = natural[schema.TreeToKey[d]]
	}
	return out
}

// knownRoles reports, for each of the two non-target roles, whether it
// currently resolves to a value, and collects those values. Both maps
// are always non-nil; target itself is skipped.
func (p *TriblePattern) knownRoles(target role, binding *Binding) (map[role]bool, map[role]tribles.RawValue) {
	known := map[role]bool{}
	vals := map[role]tribles.RawValue{}
	for _, r := range []role{roleE, roleA, roleV} {
		if r == target {
			continue
		}
		val, ok := p.termFor(r).resolve(binding)
		known[r] = ok
		if ok {
			vals[r] = val
		}
	}
	return known, vals
}

func (p *TriblePattern) Propose(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	target, ok := p.roleOf(v)
	if !ok {
		return
	}
	known, vals := p.knownRoles(target, binding)
	schema, order := plan(target, known[roleE], known[roleA], known[roleV])
	prefix := buildPrefix(schema, order, vals)
	reprs := p.patchFor(schema).Infixes(prefix, roleSegBytes(target))
	for _, repr := range reprs {
		var rv tribles.RawValue
		switch target {
		case roleE:
			copy(rv[16:32], repr[0:16])
		case roleA:
			copy(rv[16:32], repr[16:32])
		case roleV:
			copy(rv[:], repr[32:64])
		}
		*out = append(*out, rv)
	}
}

// Confirm extends the known-role prefix with each candidate and checks
// it via has_prefix on whichever ordering the known roles (now
// including the candidate itself) select — the same ordering/prefix
// machinery Estimate and Propose use, so a candidate is accepted
// exactly when some stored trible agrees with every role this pattern
// currently has a value for, bound or constant.
func (p *TriblePattern) Confirm(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	target, ok := p.roleOf(v)
	if !ok {
		return
	}
	known, vals := p.knownRoles(target, binding)
	schema, order := plan(target, known[roleE], known[roleA], known[roleV])
	filterValues(out, func(candidate tribles.RawValue) bool {
		withCandidate := make(map[role]tribles.RawValue, len(vals)+1)
		for r, val := range vals {
			withCandidate[r] = val
		}
		withCandidate[target] = candidate
		prefix := buildPrefix(schema, append(append([]role{}, order...), target), withCandidate)
		return p.patchFor(schema).HasPrefix(prefix)
	})
}
