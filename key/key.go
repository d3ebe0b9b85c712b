// Package key holds ed25519 payment keys and their ledger hashes.
package key

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/mgpai22/argentum/cbor"
	"github.com/mgpai22/argentum/ledger"
)

// VerificationKey is a public ed25519 key.
type VerificationKey struct {
	Payload []byte
}

// SigningKey is a private ed25519 key in its 64-byte expanded form.
type SigningKey struct {
	Payload []byte
}

// KeyPair bundles a signing key with its verification key.
type KeyPair struct {
	SigningKey      SigningKey
	VerificationKey VerificationKey
}

// GenerateKeyPair creates a fresh ed25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "generate ed25519 key")
	}
	return KeyPair{
		SigningKey:      SigningKey{Payload: priv},
		VerificationKey: VerificationKey{Payload: pub},
	}, nil
}

// KeyPairFromSigningKey derives the verification key from a signing key.
func KeyPairFromSigningKey(sk SigningKey) (KeyPair, error) {
	if len(sk.Payload) != ed25519.PrivateKeySize {
		return KeyPair{}, errors.Errorf("signing key must be %d bytes, got %d",
			ed25519.PrivateKeySize, len(sk.Payload))
	}
	pub := ed25519.PrivateKey(sk.Payload).Public().(ed25519.PublicKey)
	return KeyPair{
		SigningKey:      sk,
		VerificationKey: VerificationKey{Payload: pub},
	}, nil
}

// Sign produces an ed25519 signature over the message, normally a
// transaction body hash.
func (k SigningKey) Sign(message []byte) ([]byte, error) {
	if len(k.Payload) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("signing key must be %d bytes, got %d",
			ed25519.PrivateKeySize, len(k.Payload))
	}
	return ed25519.Sign(ed25519.PrivateKey(k.Payload), message), nil
}

// Hash returns the blake2b-224 key hash used as a payment or stake
// credential.
func (k VerificationKey) Hash() (ledger.AddrKeyHash, error) {
	var out ledger.AddrKeyHash
	if len(k.Payload) != ed25519.PublicKeySize {
		return out, errors.Errorf("verification key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(k.Payload))
	}
	h, err := blake2b.New(28, nil)
	if err != nil {
		return out, err
	}
	h.Write(k.Payload)
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Verify checks a signature made by the matching signing key.
func (k VerificationKey) Verify(message, signature []byte) bool {
	if len(k.Payload) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(k.Payload), message, signature)
}

func (k VerificationKey) String() string {
	return hex.EncodeToString(k.Payload)
}

func (k VerificationKey) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(k.Payload)
}

func (k *VerificationKey) UnmarshalCBOR(data []byte) error {
	return cbor.Unmarshal(data, &k.Payload)
}

func (k SigningKey) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(k.Payload)
}

func (k *SigningKey) UnmarshalCBOR(data []byte) error {
	return cbor.Unmarshal(data, &k.Payload)
}
