package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCuckooRoundsCapacityUp(t *testing.T) {
	assert.Equal(t, minCuckooCap, newCuckoo[int](0).cap)
	assert.Equal(t, minCuckooCap, newCuckoo[int](1).cap)
	assert.Equal(t, 4, newCuckoo[int](3).cap)
	assert.Equal(t, maxCuckooCap, newCuckoo[int](1000).cap)
}

func TestSetStartCapacityAffectsNewBranches(t *testing.T) {
	prev := startCuckooCap
	defer func() { startCuckooCap = prev }()

	SetStartCapacity(17)
	assert.Equal(t, 32, startCuckooCap)

	a := newLeaf([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), 1, true)
	b := newLeaf([]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), 2, true)
	br := joinAt[int](EAV, 0, a, b)
	assert.Equal(t, 32, br.children.cap)
}
