package cbor

// Major types of the wire format's primitive algebra.
const (
	MajorUnsigned   = 0
	MajorNegative   = 1
	MajorByteString = 2
	MajorTextString = 3
	MajorArray      = 4
	MajorMap        = 5
	MajorTag        = 6
	MajorSimple     = 7
)

// MajorType returns the major type of an encoded item's first byte.
func MajorType(head byte) byte { return head >> 5 }

// AppendHeader appends the shortest-form header for a major type and
// argument, the building block for hand-assembled canonical items.
func AppendHeader(dst []byte, major byte, n uint64) []byte {
	mt := major << 5
	switch {
	case n < 24:
		return append(dst, mt|byte(n))
	case n <= 0xff:
		return append(dst, mt|24, byte(n))
	case n <= 0xffff:
		return append(dst, mt|25, byte(n>>8), byte(n))
	case n <= 0xffffffff:
		return append(dst, mt|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(dst, mt|27,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}
