package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair_SignAndVerify(t *testing.T) {
	pair, err := GenerateKeyPair()
	require.NoError(t, err)

	message := []byte("transaction body hash stand-in")
	sig, err := pair.SigningKey.Sign(message)
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	assert.True(t, pair.VerificationKey.Verify(message, sig))
	assert.False(t, pair.VerificationKey.Verify([]byte("other"), sig))
}

func TestKeyPairFromSigningKey_RecoversVerificationKey(t *testing.T) {
	pair, err := GenerateKeyPair()
	require.NoError(t, err)

	recovered, err := KeyPairFromSigningKey(pair.SigningKey)
	require.NoError(t, err)
	assert.Equal(t, pair.VerificationKey, recovered.VerificationKey)
}

func TestVerificationKey_Hash(t *testing.T) {
	pair, err := GenerateKeyPair()
	require.NoError(t, err)

	first, err := pair.VerificationKey.Hash()
	require.NoError(t, err)
	second, err := pair.VerificationKey.Hash()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	otherHash, err := other.VerificationKey.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, first, otherHash)
}

func TestSigningKey_RejectsWrongSize(t *testing.T) {
	_, err := SigningKey{Payload: []byte{1, 2, 3}}.Sign([]byte("msg"))
	assert.Error(t, err)

	_, err = KeyPairFromSigningKey(SigningKey{Payload: []byte{1}})
	assert.Error(t, err)
}
