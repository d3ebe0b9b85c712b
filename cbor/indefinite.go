package cbor

var (
	indefListHead = []byte{0x9f}
	breakCode     = []byte{0xff}
)

// IndefiniteList is the explicit unbounded-sequence wrapper: it is the only
// value in this module that encodes with an indefinite-length marker. It
// exists for sequences whose element count may legitimately be very large
// and for wire formats that require indefinite-length framing, such as
// non-empty Plutus constructor fields.
type IndefiniteList []interface{}

func (l IndefiniteList) MarshalCBOR() ([]byte, error) {
	out := append([]byte{}, indefListHead...)
	for _, item := range l {
		data, err := Marshal(item)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return append(out, breakCode...), nil
}

func (l *IndefiniteList) UnmarshalCBOR(data []byte) error {
	var items []interface{}
	if err := Unmarshal(data, &items); err != nil {
		return err
	}
	*l = IndefiniteList(items)
	return nil
}
