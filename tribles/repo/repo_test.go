package repo

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyBranchSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	content := []byte("branch head content hash")
	sig := ed25519.Sign(priv, content)

	ok, err := VerifyBranchSignature(pub, content, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := append([]byte{}, content...)
	tampered[0] ^= 0xff
	ok, err = VerifyBranchSignature(pub, tampered, sig)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrBadSignature)
}
