package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triblespace/tribles-go/tribles"
	"github.com/triblespace/tribles-go/tribles/id"
	"github.com/triblespace/tribles-go/tribles/value"
)

func TestFindPatternSingleVariable(t *testing.T) {
	loves := mustRandID(t)
	name := mustRandID(t)
	romeo := mustRandID(t)
	juliet := mustRandID(t)
	rosaline := mustRandID(t)

	set := tribles.NewTribleSet()
	insertEdge(t, set, romeo, loves, juliet)
	insertEdge(t, set, romeo, loves, rosaline)
	insertEdge(t, set, romeo, name, romeo)

	const vLover VariableId = 0
	pattern := Pattern(set, Const(value.GenIdEncode(romeo)), Const(value.GenIdEncode(loves)), Var(vLover))

	var got []tribles.RawValue
	for b := range Find([]VariableId{vLover}, pattern) {
		v, ok := b.Get(vLover)
		require.True(t, ok)
		got = append(got, v)
	}
	assert.ElementsMatch(t, []tribles.RawValue{value.GenIdEncode(juliet), value.GenIdEncode(rosaline)}, got)
}

// TestFindJoinTwoPatterns checks the driver's worst-case-optimal join
// across two TriblePattern constraints sharing a variable: only
// Juliet both receives Romeo's love and returns it.
func TestFindJoinTwoPatterns(t *testing.T) {
	loves := mustRandID(t)
	romeo := mustRandID(t)
	juliet := mustRandID(t)
	rosaline := mustRandID(t)

	set := tribles.NewTribleSet()
	insertEdge(t, set, romeo, loves, juliet)
	insertEdge(t, set, romeo, loves, rosaline)
	insertEdge(t, set, juliet, loves, romeo)

	const vLover VariableId = 0
	lovesConst := value.GenIdEncode(loves)
	romeoConst := value.GenIdEncode(romeo)

	p1 := Pattern(set, Const(romeoConst), Const(lovesConst), Var(vLover))
	p2 := Pattern(set, Var(vLover), Const(lovesConst), Const(romeoConst))
	c := And(p1, p2)

	var got []tribles.RawValue
	for b := range Find([]VariableId{vLover}, c) {
		v, ok := b.Get(vLover)
		require.True(t, ok)
		got = append(got, v)
	}
	assert.ElementsMatch(t, []tribles.RawValue{value.GenIdEncode(juliet)}, got)
}

func insertFact(t *testing.T, set *tribles.TribleSet, e, a id.Id, v tribles.RawValue) {
	t.Helper()
	rawE, err := tribles.NewRawId([16]byte(e))
	require.NoError(t, err)
	rawA, err := tribles.NewRawId([16]byte(a))
	require.NoError(t, err)
	tr, err := tribles.NewTrible(rawE, rawA, v)
	require.NoError(t, err)
	set.Insert(tr)
}

// TestFindThreePatternJoin runs the classic two-entity scenario: X
// loves someone named Romeo and X's name is Y, expecting exactly
// (Juliet's entity, "Juliet").
func TestFindThreePatternJoin(t *testing.T) {
	loves := mustRandID(t)
	name := mustRandID(t)
	e1 := mustRandID(t)
	e2 := mustRandID(t)

	julietName, err := value.ShortStringEncode("Juliet")
	require.NoError(t, err)
	romeoName, err := value.ShortStringEncode("Romeo")
	require.NoError(t, err)

	set := tribles.NewTribleSet()
	insertFact(t, set, e1, name, julietName)
	insertEdge(t, set, e1, loves, e2)
	insertFact(t, set, e2, name, romeoName)
	insertEdge(t, set, e2, loves, e1)

	const x, y, z VariableId = 0, 1, 2
	lovesConst := value.GenIdEncode(loves)
	nameConst := value.GenIdEncode(name)
	c := And(
		Pattern(set, Var(x), Const(lovesConst), Var(z)),
		Pattern(set, Var(z), Const(nameConst), Const(romeoName)),
		Pattern(set, Var(x), Const(nameConst), Var(y)),
	)

	var got [][2]tribles.RawValue
	for b := range Find([]VariableId{x, y}, c) {
		xv, ok := b.Get(x)
		require.True(t, ok)
		yv, ok := b.Get(y)
		require.True(t, ok)
		got = append(got, [2]tribles.RawValue{xv, yv})
	}
	require.Len(t, got, 1)
	assert.Equal(t, value.GenIdEncode(e1), got[0][0])
	assert.Equal(t, julietName, got[0][1])
}

func TestFindRejectsUnmentionedVariable(t *testing.T) {
	set := tribles.NewTribleSet()
	const vA VariableId = 0
	const vB VariableId = 1
	pattern := Pattern(set, Var(vA), Const(value.GenIdEncode(mustRandID(t))), Const(value.GenIdEncode(mustRandID(t))))

	assert.Panics(t, func() {
		for range Find([]VariableId{vB}, pattern) {
		}
	})
}
