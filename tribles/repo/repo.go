// Package repo holds the branch/commit metadata contract's signature
// half: a predicate that verifies an Ed25519 signature over a
// branch's content hash. Signing, and the rest of the branch/commit
// machinery, live outside this module; this package exists to give
// that one predicate a concrete, testable home.
package repo

import (
	"crypto/ed25519"
	"errors"
)

// ErrBadSignature is returned by VerifyBranchSignature when the
// signature does not verify against the given public key and content.
var ErrBadSignature = errors.New("repo: signature does not verify")

// VerifyBranchSignature reports whether sig is a valid Ed25519
// signature by pub over content (typically a branch's content hash).
// It returns ErrBadSignature rather than a bool so call sites compose
// naturally with Go's error-wrapping idiom; ok is also returned for
// callers that would rather branch on a bool directly.
//
// Standard library crypto/ed25519, not a pack dependency: every
// third-party signature package this repo's retrieval pack carries
// (secp256k1-family curves) verifies a different curve entirely, and
// reaching for one to check an Ed25519 signature would just be wrong.
// Ed25519 verification is three stdlib calls; there is nothing a
// dependency would add.
func VerifyBranchSignature(pub ed25519.PublicKey, content, sig []byte) (ok bool, err error) {
	if len(pub) != ed25519.PublicKeySize {
		return false, errors.New("repo: malformed public key")
	}
	if !ed25519.Verify(pub, content, sig) {
		return false, ErrBadSignature
	}
	return true, nil
}
