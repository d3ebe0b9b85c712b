// Package plutus models script-facing data: the recursive raw datum
// algebra, redeemers with their execution budgets, cost models and the
// script wrappers. The datum algebra is deliberately open ended; whatever
// cannot be interpreted is preserved as an opaque raw item so no structure
// is ever lost across a decode/encode cycle.
package plutus

import (
	"bytes"
	"fmt"
	"math/big"

	"golang.org/x/crypto/blake2b"

	"github.com/mgpai22/argentum/cbor"
)

// DataKind enumerates the shapes of the datum algebra.
type DataKind int

const (
	DataKindInt DataKind = iota
	DataKindBytes
	DataKindList
	DataKindIndefList
	DataKindMap
	DataKindConstr
	// DataKindRaw preserves an item whose shape is not part of the
	// algebra (text, floats, foreign tags, maps with unknown key order).
	DataKindRaw
)

// DataPair is one entry of a datum map; entry order is part of the value.
type DataPair struct {
	Key   Data
	Value Data
}

// Data is a node of the recursive datum tree.
type Data struct {
	kind        DataKind
	integer     *big.Int
	bytesValue  []byte
	items       []Data
	pairs       []DataPair
	alternative uint64
	indefFields bool
	raw         cbor.RawMessage
}

// NewInt builds an integer node.
func NewInt(v int64) Data {
	return Data{kind: DataKindInt, integer: big.NewInt(v)}
}

// NewBigInt builds an integer node from an arbitrary-precision value.
func NewBigInt(v *big.Int) Data {
	return Data{kind: DataKindInt, integer: new(big.Int).Set(v)}
}

// NewBytes builds a byte-string node.
func NewBytes(v []byte) Data {
	return Data{kind: DataKindBytes, bytesValue: append([]byte{}, v...)}
}

// NewList builds a definite-length sequence node.
func NewList(items ...Data) Data {
	return Data{kind: DataKindList, items: items}
}

// NewIndefList builds an indefinite-length sequence node.
func NewIndefList(items ...Data) Data {
	return Data{kind: DataKindIndefList, items: items}
}

// NewMap builds a map node; pairs keep their given order.
func NewMap(pairs ...DataPair) Data {
	return Data{kind: DataKindMap, pairs: pairs}
}

// NewConstr builds a constructor node with the given alternative.
func NewConstr(alternative uint64, fields ...Data) Data {
	return Data{kind: DataKindConstr, alternative: alternative, items: fields, indefFields: true}
}

// NewRaw preserves an already-encoded item verbatim.
func NewRaw(raw []byte) Data {
	return Data{kind: DataKindRaw, raw: append(cbor.RawMessage{}, raw...)}
}

func (d Data) Kind() DataKind { return d.kind }

// Int returns the integer payload of an integer node.
func (d Data) Int() *big.Int { return d.integer }

// Bytes returns the payload of a byte-string node.
func (d Data) Bytes() []byte { return d.bytesValue }

// Items returns sequence elements or constructor fields.
func (d Data) Items() []Data { return d.items }

// Pairs returns map entries in wire order.
func (d Data) Pairs() []DataPair { return d.pairs }

// Alternative returns the constructor alternative of a constructor node.
func (d Data) Alternative() uint64 { return d.alternative }

// Raw returns the preserved bytes of a raw node.
func (d Data) Raw() cbor.RawMessage { return d.raw }

// Equal compares the canonical encodings; the wire form is the identity of
// a datum.
func (d Data) Equal(other Data) bool {
	a, err := d.MarshalCBOR()
	if err != nil {
		return false
	}
	b, err := other.MarshalCBOR()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Constructor alternatives 0..6 map onto tags 121..127, 7..127 onto
// 1280..1400; anything larger uses the general form under tag 102.
func constrTag(alternative uint64) (uint64, bool) {
	switch {
	case alternative < 7:
		return 121 + alternative, true
	case alternative < 128:
		return 1280 + alternative - 7, true
	default:
		return 0, false
	}
}

func alternativeForTag(tag uint64) (uint64, bool) {
	switch {
	case tag >= 121 && tag < 128:
		return tag - 121, true
	case tag >= 1280 && tag < 1401:
		return tag - 1280 + 7, true
	default:
		return 0, false
	}
}

func (d Data) MarshalCBOR() ([]byte, error) {
	switch d.kind {
	case DataKindInt:
		return cbor.Marshal(d.integer)
	case DataKindBytes:
		return cbor.Marshal(d.bytesValue)
	case DataKindList:
		return d.marshalItems(false)
	case DataKindIndefList:
		return d.marshalItems(true)
	case DataKindMap:
		out := cbor.AppendHeader(nil, cbor.MajorMap, uint64(len(d.pairs)))
		for _, pair := range d.pairs {
			key, err := pair.Key.MarshalCBOR()
			if err != nil {
				return nil, err
			}
			value, err := pair.Value.MarshalCBOR()
			if err != nil {
				return nil, err
			}
			out = append(out, key...)
			out = append(out, value...)
		}
		return out, nil
	case DataKindConstr:
		fields, err := d.marshalItems(d.indefFields && len(d.items) > 0)
		if err != nil {
			return nil, err
		}
		if tag, ok := constrTag(d.alternative); ok {
			return append(cbor.AppendHeader(nil, cbor.MajorTag, tag), fields...), nil
		}
		out := cbor.AppendHeader(nil, cbor.MajorTag, 102)
		out = cbor.AppendHeader(out, cbor.MajorArray, 2)
		out = cbor.AppendHeader(out, cbor.MajorUnsigned, d.alternative)
		return append(out, fields...), nil
	case DataKindRaw:
		if len(d.raw) == 0 {
			return nil, &cbor.EncodeError{Value: d, Err: fmt.Errorf("empty raw datum")}
		}
		return append([]byte{}, d.raw...), nil
	default:
		return nil, &cbor.EncodeError{Value: d, Err: fmt.Errorf("unknown data kind %d", d.kind)}
	}
}

func (d Data) marshalItems(indefinite bool) ([]byte, error) {
	var out []byte
	if indefinite {
		out = []byte{0x9f}
	} else {
		out = cbor.AppendHeader(nil, cbor.MajorArray, uint64(len(d.items)))
	}
	for _, item := range d.items {
		data, err := item.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	if indefinite {
		out = append(out, 0xff)
	}
	return out, nil
}

func (d *Data) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return cbor.NewDecodeError(d, "empty input")
	}
	head := data[0]
	switch cbor.MajorType(head) {
	case cbor.MajorUnsigned, cbor.MajorNegative:
		return d.unmarshalInt(data)
	case cbor.MajorByteString:
		var payload []byte
		if err := cbor.Unmarshal(data, &payload); err != nil {
			return err
		}
		*d = NewBytes(payload)
		return nil
	case cbor.MajorArray:
		items, err := decodeDataItems(data)
		if err != nil {
			return err
		}
		kind := DataKindList
		if head&0x1f == 31 {
			kind = DataKindIndefList
		}
		*d = Data{kind: kind, items: items}
		return nil
	case cbor.MajorTag:
		return d.unmarshalTagged(data)
	default:
		// Text, floats, simple values and maps (whose entry order the
		// primitive decoder cannot report) survive as opaque raw items.
		*d = NewRaw(data)
		return nil
	}
}

func (d *Data) unmarshalInt(data []byte) error {
	integer := new(big.Int)
	if err := cbor.Unmarshal(data, integer); err != nil {
		return err
	}
	*d = Data{kind: DataKindInt, integer: integer}
	return nil
}

func (d *Data) unmarshalTagged(data []byte) error {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return err
	}
	switch {
	case tag.Number == 2 || tag.Number == 3:
		return d.unmarshalInt(data)
	case tag.Number == 102:
		var items []cbor.RawMessage
		if err := cbor.Unmarshal(tag.Content, &items); err != nil {
			return err
		}
		if len(items) != 2 {
			return cbor.NewDecodeError(d, "general constructor must have 2 elements, got %d", len(items))
		}
		var alternative uint64
		if err := cbor.Unmarshal(items[0], &alternative); err != nil {
			return err
		}
		fields, err := decodeDataItems(items[1])
		if err != nil {
			return err
		}
		*d = Data{
			kind:        DataKindConstr,
			alternative: alternative,
			items:       fields,
			indefFields: indefiniteHead(items[1]),
		}
		return nil
	default:
		if alternative, ok := alternativeForTag(tag.Number); ok {
			fields, err := decodeDataItems(tag.Content)
			if err != nil {
				return err
			}
			*d = Data{
				kind:        DataKindConstr,
				alternative: alternative,
				items:       fields,
				indefFields: indefiniteHead(tag.Content),
			}
			return nil
		}
		// Foreign tag: preserve, do not guess.
		*d = NewRaw(data)
		return nil
	}
}

func indefiniteHead(data []byte) bool {
	return len(data) > 0 && cbor.MajorType(data[0]) == cbor.MajorArray && data[0]&0x1f == 31
}

func decodeDataItems(data []byte) ([]Data, error) {
	var raw []cbor.RawMessage
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([]Data, len(raw))
	for i, r := range raw {
		if err := items[i].UnmarshalCBOR(r); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// DataHash is the content hash of a datum: blake2b-256 over its canonical
// encoding.
func DataHash(d Data) ([32]byte, error) {
	data, err := d.MarshalCBOR()
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}
