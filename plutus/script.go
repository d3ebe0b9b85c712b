package plutus

import (
	"golang.org/x/crypto/blake2b"
)

// Script is one of the Plutus script versions. The payload is the raw
// script bytes as they appear inside the witness set, without the extra
// CBOR byte-string wrapping some tooling applies.
type Script interface {
	// Bytes returns the raw script payload.
	Bytes() []byte
	// Version returns the language version, 1-based.
	Version() uint8
}

// V1Script is a Plutus V1 script payload.
type V1Script []byte

// V2Script is a Plutus V2 script payload.
type V2Script []byte

// V3Script is a Plutus V3 script payload.
type V3Script []byte

func (s V1Script) Bytes() []byte  { return s }
func (s V1Script) Version() uint8 { return 1 }

func (s V2Script) Bytes() []byte  { return s }
func (s V2Script) Version() uint8 { return 2 }

func (s V3Script) Bytes() []byte  { return s }
func (s V3Script) Version() uint8 { return 3 }

// ScriptHash computes the payment-credential hash of a script: blake2b-224
// over a language discriminant byte followed by the raw script bytes.
func ScriptHash(s Script) ([28]byte, error) {
	h, err := blake2b.New(28, nil)
	if err != nil {
		return [28]byte{}, err
	}
	h.Write([]byte{s.Version()})
	h.Write(s.Bytes())
	var out [28]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
