package tribles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigureCuckooStartCapacity(t *testing.T) {
	Configure(Options{CuckooStartCapacity: 10})
	// Exercises the wiring path only; patch's own tests cover the
	// resulting cuckoo table size in detail.
	set := NewTribleSet()
	assert.Equal(t, uint64(0), set.Len())
}
