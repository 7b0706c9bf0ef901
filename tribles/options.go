package tribles

import (
	"github.com/triblespace/tribles-go/internal/tlog"
	"github.com/triblespace/tribles-go/tribles/patch"
)

// Options gathers the process-wide knobs this module exposes: the
// PATCH subtree digest key, the cuckoo child-table starting capacity,
// and the logging level. All three are either latched on first use or
// meant to be set once at startup, never reconfigured mid-run.
type Options struct {
	// DigestKey, if non-nil, pins the SipHash key PATCH subtree
	// digests are computed under instead of letting it seed randomly
	// from the OS RNG. Exists so deterministic tests can assert on
	// exact digest values; leave nil in production.
	DigestKey *[4]uint64

	// CuckooStartCapacity, if non-zero, overrides the child-table size
	// a freshly split branch starts at.
	CuckooStartCapacity int

	// Debug raises the logger to development/debug verbosity.
	Debug bool
}

// Configure applies opts. Call it before building any PATCH if
// DigestKey is set, since the key only takes effect up to the first
// hash that would otherwise have latched a random default.
// CuckooStartCapacity applies to every branch joined after the call.
func Configure(opts Options) {
	if opts.DigestKey != nil {
		k := opts.DigestKey
		patch.SetDigestKey(k[0], k[1], k[2], k[3])
	}
	if opts.CuckooStartCapacity != 0 {
		patch.SetStartCapacity(opts.CuckooStartCapacity)
	}
	tlog.SetLevel(opts.Debug)
}
