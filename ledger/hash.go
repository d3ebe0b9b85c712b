// Package ledger defines the domain objects that participate in the wire
// protocol: inputs, outputs, values, certificates, scripts, witness sets and
// the transaction body itself. Every type declares its wire shape through
// the codec in package cbor; structural equality implies byte-identical
// canonical encoding.
package ledger

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/mgpai22/argentum/cbor"
)

// Blake2b256 is a 32-byte digest, the width used for transaction ids, datum
// hashes and script data hashes.
type Blake2b256 [32]byte

// Blake2b224 is a 28-byte digest, the width used for key hashes and script
// hashes (policy ids).
type Blake2b224 [28]byte

type (
	TransactionID     = Blake2b256
	DatumHash         = Blake2b256
	ScriptDataHash    = Blake2b256
	AuxiliaryDataHash = Blake2b256

	AddrKeyHash = Blake2b224
	ScriptHash  = Blake2b224
	PolicyID    = Blake2b224
	PoolKeyHash = Blake2b224
)

// Blake2b256Hash digests data.
func Blake2b256Hash(data []byte) Blake2b256 {
	return blake2b.Sum256(data)
}

// Blake2b224Hash digests data.
func Blake2b224Hash(data []byte) Blake2b224 {
	return cbor.Sum224(data)
}

// NewBlake2b256 wraps an existing 32-byte digest.
func NewBlake2b256(data []byte) (Blake2b256, error) {
	var h Blake2b256
	if len(data) != len(h) {
		return h, fmt.Errorf("ledger: hash must be %d bytes, got %d", len(h), len(data))
	}
	copy(h[:], data)
	return h, nil
}

// NewBlake2b224 wraps an existing 28-byte digest.
func NewBlake2b224(data []byte) (Blake2b224, error) {
	var h Blake2b224
	if len(data) != len(h) {
		return h, fmt.Errorf("ledger: hash must be %d bytes, got %d", len(h), len(data))
	}
	copy(h[:], data)
	return h, nil
}

// NewBlake2b256FromHex parses a hex digest.
func NewBlake2b256FromHex(s string) (Blake2b256, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Blake2b256{}, err
	}
	return NewBlake2b256(data)
}

// NewBlake2b224FromHex parses a hex digest.
func NewBlake2b224FromHex(s string) (Blake2b224, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Blake2b224{}, err
	}
	return NewBlake2b224(data)
}

func (h Blake2b256) String() string { return hex.EncodeToString(h[:]) }
func (h Blake2b256) Bytes() []byte  { return h[:] }

func (h Blake2b256) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(h[:])
}

func (h *Blake2b256) UnmarshalCBOR(data []byte) error {
	var payload []byte
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return err
	}
	parsed, err := NewBlake2b256(payload)
	if err != nil {
		return cbor.NewDecodeError(h, "%s", err)
	}
	*h = parsed
	return nil
}

func (h Blake2b224) String() string { return hex.EncodeToString(h[:]) }
func (h Blake2b224) Bytes() []byte  { return h[:] }

func (h Blake2b224) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(h[:])
}

func (h *Blake2b224) UnmarshalCBOR(data []byte) error {
	var payload []byte
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return err
	}
	parsed, err := NewBlake2b224(payload)
	if err != nil {
		return cbor.NewDecodeError(h, "%s", err)
	}
	*h = parsed
	return nil
}

// Compare orders digests bytewise, the canonical order for policy ids.
func (h Blake2b224) Compare(other Blake2b224) int {
	return bytes.Compare(h[:], other[:])
}
