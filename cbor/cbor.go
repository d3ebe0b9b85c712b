// Package cbor is the wire codec used by every domain type in this module.
//
// It wraps github.com/Salvionied/cbor/v2 with a single canonical encoder so
// that two structurally equal values always serialize to byte-identical
// output. Content hashes and signatures are computed over these bytes, which
// is why no other encoder configuration exists in this module.
package cbor

import (
	"encoding/hex"

	"github.com/Salvionied/cbor/v2"
)

// RawMessage is a raw, already-encoded CBOR item. It is kept verbatim through
// decode/encode cycles, preserving data whose subtype cannot be statically
// known.
type RawMessage = cbor.RawMessage

// Tag is a CBOR tagged variant: a small integer tag number plus one payload.
type Tag = cbor.Tag

// RawTag is a tagged variant whose payload is kept as raw bytes.
type RawTag = cbor.RawTag

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthAllowed,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		IndefLength: cbor.IndefLengthAllowed,
		MaxMapPairs: 2147483647,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v into its canonical CBOR form: definite lengths
// everywhere, canonically sorted map keys and shortest-form integers. The
// only exception is IndefiniteList, which explicitly requests
// indefinite-length encoding for its elements.
func Marshal(v interface{}) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Value: v, Err: err}
	}
	return data, nil
}

// MarshalHex encodes v canonically and returns the hex form of the bytes.
func MarshalHex(v interface{}) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// Unmarshal decodes data into v. Surplus bytes after the first item, a
// primitive shape that does not fit v, and malformed input all fail with a
// DecodeError; no partial result is ever produced.
func Unmarshal(data []byte, v interface{}) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return &DecodeError{Target: v, Err: err}
	}
	return nil
}

// UnmarshalHex decodes a hex string of CBOR bytes into v.
func UnmarshalHex(s string, v interface{}) error {
	data, err := hex.DecodeString(s)
	if err != nil {
		return &DecodeError{Target: v, Err: err}
	}
	return Unmarshal(data, v)
}
