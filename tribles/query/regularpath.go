package query

import (
	"encoding/binary"

	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/patch"
	"github.com/triblespace/tribles-go/tribles/value"
)

// PathOp is one instruction of a postfix regular-path expression: walk
// an attribute edge, concatenate, branch, or repeat the fragment below
// it on an operand stack. Path compiles a sequence of these into a
// Thompson NFA.
type PathOp struct {
	kind  pathOpKind
	label tribles.RawId
}

type pathOpKind int

const (
	opAttr pathOpKind = iota
	opConcat
	opUnion
	opStar
	opPlus
)

// Edge pushes a single attribute-labelled transition.
func Edge(attr tribles.RawId) PathOp { return PathOp{kind: opAttr, label: attr} }

// Concat pops two fragments and pushes their sequential join.
func Concat() PathOp { return PathOp{kind: opConcat} }

// PathUnion pops two fragments and pushes their branch.
func PathUnion() PathOp { return PathOp{kind: opUnion} }

// Star pops one fragment and pushes its zero-or-more repetition.
func Star() PathOp { return PathOp{kind: opStar} }

// Plus pops one fragment and pushes its one-or-more repetition.
func Plus() PathOp { return PathOp{kind: opPlus} }

var epsilonLabel tribles.RawId

type transition struct {
	label tribles.RawId
	to    uint64
}

type fragment struct {
	start, end uint64
}

// RegularPathConstraint binds (start, end) to pairs of vertices in src
// connected by a walk whose edge labels match a compiled regular
// expression over attribute ids. The NFA itself is state machinery
// only: reachability over the actual graph interleaves NFA
// transitions with lookups against src's EAV ordering.
type RegularPathConstraint struct {
	src              patternSet
	trans            *patch.PATCH[struct{}]
	start            uint64
	accept           map[uint64]struct{}
	nStates          uint64
	startVar, endVar VariableId
}

// Path compiles ops (in postfix order) into a RegularPathConstraint
// over src, binding the walk's first and last vertex to startVar and
// endVar.
func Path(src patternSet, startVar, endVar VariableId, ops []PathOp) *RegularPathConstraint {
	c := &RegularPathConstraint{
		src:      src,
		trans:    patch.New[struct{}](patch.Identity32),
		accept:   map[uint64]struct{}{},
		startVar: startVar,
		endVar:   endVar,
	}
	newState := func() uint64 {
		s := c.nStates
		c.nStates++
		return s
	}
	var stack []fragment
	pop := func() fragment {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return f
	}
	for _, op := range ops {
		switch op.kind {
		case opAttr:
			from, to := newState(), newState()
			c.addEdge(from, op.label, to)
			stack = append(stack, fragment{from, to})
		case opConcat:
			b, a := pop(), pop()
			c.addEdge(a.end, epsilonLabel, b.start)
			stack = append(stack, fragment{a.start, b.end})
		case opUnion:
			b, a := pop(), pop()
			start, end := newState(), newState()
			c.addEdge(start, epsilonLabel, a.start)
			c.addEdge(start, epsilonLabel, b.start)
			c.addEdge(a.end, epsilonLabel, end)
			c.addEdge(b.end, epsilonLabel, end)
			stack = append(stack, fragment{start, end})
		case opStar:
			a := pop()
			start, end := newState(), newState()
			c.addEdge(start, epsilonLabel, a.start)
			c.addEdge(start, epsilonLabel, end)
			c.addEdge(a.end, epsilonLabel, a.start)
			c.addEdge(a.end, epsilonLabel, end)
			stack = append(stack, fragment{start, end})
		case opPlus:
			a := pop()
			end := newState()
			c.addEdge(a.end, epsilonLabel, a.start)
			c.addEdge(a.end, epsilonLabel, end)
			stack = append(stack, fragment{a.start, end})
		}
	}
	if len(stack) != 1 {
		panic("query: path: malformed postfix expression")
	}
	final := pop()
	c.start = final.start
	c.accept[final.end] = struct{}{}
	return c
}

func (c *RegularPathConstraint) addEdge(from uint64, label tribles.RawId, to uint64) {
	var key [32]byte
	binary.BigEndian.PutUint64(key[0:8], from)
	copy(key[8:24], label[:])
	binary.BigEndian.PutUint64(key[24:32], to)
	c.trans.Replace(key[:], struct{}{})
}

func (c *RegularPathConstraint) outgoing(state uint64) []transition {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], state)
	reprs := c.trans.Infixes(prefix[:], 24)
	out := make([]transition, 0, len(reprs))
	for _, r := range reprs {
		var label tribles.RawId
		copy(label[:], r[8:24])
		out = append(out, transition{label: label, to: binary.BigEndian.Uint64(r[24:32])})
	}
	return out
}

func (c *RegularPathConstraint) epsilonClosure(seed map[uint64]struct{}) map[uint64]struct{} {
	closure := make(map[uint64]struct{}, len(seed))
	stack := make([]uint64, 0, len(seed))
	for s := range seed {
		closure[s] = struct{}{}
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, tr := range c.outgoing(s) {
			if tr.label != epsilonLabel {
				continue
			}
			if _, ok := closure[tr.to]; !ok {
				closure[tr.to] = struct{}{}
				stack = append(stack, tr.to)
			}
		}
	}
	return closure
}

// dataNeighbors returns the vertices reachable from vertex by a single
// edge labelled label, stored in src as the trible (vertex, label, v).
func (c *RegularPathConstraint) dataNeighbors(vertex, label tribles.RawId) []tribles.RawId {
	var prefix [32]byte
	copy(prefix[0:16], vertex[:])
	copy(prefix[16:32], label[:])
	reprs := c.src.EAV().Infixes(prefix[:], 32)
	out := make([]tribles.RawId, 0, len(reprs))
	for _, r := range reprs {
		var v tribles.RawId
		copy(v[:], r[48:64])
		out = append(out, v)
	}
	return out
}

// hasPath reports whether the data graph contains a walk from from to
// to whose labels are accepted by the compiled NFA: a product search
// over (vertex, epsilon-closed NFA state-set) pairs.
func (c *RegularPathConstraint) hasPath(from, to tribles.RawId) bool {
	type pair struct {
		vertex tribles.RawId
		state  uint64
	}
	visited := map[pair]struct{}{}
	var queue []pair
	enqueue := func(vertex tribles.RawId, states map[uint64]struct{}) {
		for s := range states {
			p := pair{vertex, s}
			if _, ok := visited[p]; !ok {
				visited[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	enqueue(from, c.epsilonClosure(map[uint64]struct{}{c.start: {}}))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.vertex == to {
			if _, ok := c.accept[cur.state]; ok {
				return true
			}
		}
		for _, tr := range c.outgoing(cur.state) {
			if tr.label == epsilonLabel {
				continue
			}
			for _, nv := range c.dataNeighbors(cur.vertex, tr.label) {
				enqueue(nv, c.epsilonClosure(map[uint64]struct{}{tr.to: {}}))
			}
		}
	}
	return false
}

// vertices returns the distinct GenId-valued entities and values
// appearing in src, the candidate domain for start and end.
func (c *RegularPathConstraint) vertices() []tribles.RawValue {
	seen := map[tribles.RawValue]struct{}{}
	var zero16 [16]byte
	c.src.EAV().Each(func(key []byte, _ struct{}) {
		var e tribles.RawValue
		copy(e[16:], key[0:16])
		seen[e] = struct{}{}
		if [16]byte(key[32:48]) == zero16 {
			var v tribles.RawValue
			copy(v[:], key[32:64])
			seen[v] = struct{}{}
		}
	})
	out := make([]tribles.RawValue, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	return out
}

func (c *RegularPathConstraint) Variables() *VariableSet {
	return NewVariableSet(c.startVar, c.endVar)
}

func (c *RegularPathConstraint) Estimate(v VariableId, _ *Binding) (uint64, bool) {
	if v != c.startVar && v != c.endVar {
		return 0, false
	}
	return uint64(len(c.vertices())), true
}

func (c *RegularPathConstraint) Propose(v VariableId, _ *Binding, out *[]tribles.RawValue) {
	if v != c.startVar && v != c.endVar {
		return
	}
	*out = append(*out, c.vertices()...)
}

func (c *RegularPathConstraint) Confirm(v VariableId, binding *Binding, out *[]tribles.RawValue) {
	var other VariableId
	var candidateIsStart bool
	switch v {
	case c.startVar:
		other, candidateIsStart = c.endVar, true
	case c.endVar:
		other, candidateIsStart = c.startVar, false
	default:
		return
	}
	otherVal, ok := binding.Get(other)
	if !ok {
		return
	}
	otherId, err := value.GenIdDecode(otherVal)
	if err != nil {
		*out = (*out)[:0]
		return
	}
	filterValues(out, func(candidate tribles.RawValue) bool {
		candidateId, err := value.GenIdDecode(candidate)
		if err != nil {
			return false
		}
		if candidateIsStart {
			return c.hasPath(tribles.RawId(candidateId), tribles.RawId(otherId))
		}
		return c.hasPath(tribles.RawId(otherId), tribles.RawId(candidateId))
	})
}
