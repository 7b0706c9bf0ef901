package patch

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triblespace/tribles-go/internal/siphash13"
)

// TestMain pins the process-wide digest key before any test in this
// package hashes a key, so TestDigestKeyOverrideTakesEffect can assert
// on an exact digest instead of only on structural properties, and
// every other test in the package runs against a reproducible key
// rather than whatever crypto/rand would have latched first.
func TestMain(m *testing.M) {
	SetDigestKey(1, 2, 3, 4)
	os.Exit(m.Run())
}

func TestDigestKeyOverrideTakesEffect(t *testing.T) {
	key := bytes.Repeat([]byte("k"), 64)
	want := digest{
		hi: siphash13.Sum64(1, 2, key),
		lo: siphash13.Sum64(3, 4, key),
	}
	assert.Equal(t, want, hashKey(key))
}

func TestDigestKeyOverrideIsLatchedOnce(t *testing.T) {
	// A second call after the key has already latched (via TestMain)
	// must have no effect: the key is seeded once per process and
	// never changes underneath live hashes.
	SetDigestKey(9, 9, 9, 9)
	key := bytes.Repeat([]byte("j"), 64)
	want := digest{
		hi: siphash13.Sum64(1, 2, key),
		lo: siphash13.Sum64(3, 4, key),
	}
	assert.Equal(t, want, hashKey(key))
}
