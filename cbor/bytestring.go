package cbor

import "encoding/hex"

// ByteString holds CBOR byte-string payloads in a Go string so it can be
// used as a map key. Go maps cannot key on []byte, but wire-level maps such
// as the per-policy asset map are keyed by byte strings.
type ByteString string

// NewByteString copies data into a ByteString.
func NewByteString(data []byte) ByteString {
	return ByteString(data)
}

// Bytes returns the payload.
func (b ByteString) Bytes() []byte {
	return []byte(b)
}

// String returns the hex form of the payload.
func (b ByteString) String() string {
	return hex.EncodeToString([]byte(b))
}

func (b ByteString) MarshalCBOR() ([]byte, error) {
	return Marshal([]byte(b))
}

func (b *ByteString) UnmarshalCBOR(data []byte) error {
	var payload []byte
	if err := Unmarshal(data, &payload); err != nil {
		return err
	}
	*b = ByteString(payload)
	return nil
}
