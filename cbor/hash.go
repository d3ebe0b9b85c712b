package cbor

import "golang.org/x/crypto/blake2b"

// Hash32 returns the blake2b-256 digest of the canonical encoding of v.
// Hashing always goes through the canonical encoder; values decoded from
// possibly non-canonical bytes must keep and hash their original bytes
// instead of re-encoding.
func Hash32(v interface{}) ([32]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

// Sum224 is blake2b-224 over raw bytes.
func Sum224(data []byte) [28]byte {
	h, err := blake2b.New(28, nil)
	if err != nil {
		panic(err)
	}
	h.Write(data)
	var out [28]byte
	copy(out[:], h.Sum(nil))
	return out
}
