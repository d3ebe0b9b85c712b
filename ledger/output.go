package ledger

import (
	"fmt"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/cbor"
)

// Datum option discriminants.
const (
	datumOptionHash   = 0
	datumOptionInline = 1
)

// DatumOption is the post-Alonzo datum attachment: either a datum hash or
// an inline datum. Inline datums are kept as their original encoded bytes so
// decoding and re-encoding an output never disturbs the datum's encoding.
type DatumOption struct {
	Hash *DatumHash
	Data cbor.RawMessage
}

// NewDatumHashOption references a datum by hash.
func NewDatumHashOption(hash DatumHash) DatumOption {
	return DatumOption{Hash: &hash}
}

// NewInlineDatumOption embeds already-encoded datum bytes.
func NewInlineDatumOption(data []byte) DatumOption {
	return DatumOption{Data: append(cbor.RawMessage{}, data...)}
}

func (d DatumOption) MarshalCBOR() ([]byte, error) {
	if d.Hash != nil {
		return cbor.Marshal([]interface{}{uint64(datumOptionHash), *d.Hash})
	}
	return cbor.Marshal([]interface{}{
		uint64(datumOptionInline),
		cbor.Tag{Number: 24, Content: []byte(d.Data)},
	})
}

func (d *DatumOption) UnmarshalCBOR(data []byte) error {
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) != 2 {
		return cbor.NewDecodeError(d, "datum option must have 2 elements, got %d", len(items))
	}
	var kind uint64
	if err := cbor.Unmarshal(items[0], &kind); err != nil {
		return err
	}
	switch kind {
	case datumOptionHash:
		var hash DatumHash
		if err := cbor.Unmarshal(items[1], &hash); err != nil {
			return err
		}
		*d = DatumOption{Hash: &hash}
		return nil
	case datumOptionInline:
		var tag cbor.RawTag
		if err := cbor.Unmarshal(items[1], &tag); err != nil {
			return err
		}
		if tag.Number != 24 {
			return cbor.NewDecodeError(d, "inline datum must be wrapped in tag 24, got %d", tag.Number)
		}
		var payload []byte
		if err := cbor.Unmarshal(tag.Content, &payload); err != nil {
			return err
		}
		*d = NewInlineDatumOption(payload)
		return nil
	default:
		return cbor.NewDecodeError(d, "unknown datum option discriminant %d", kind)
	}
}

// Script reference discriminants, shared with the witness-set script slots.
const (
	ScriptTypeNative   = 0
	ScriptTypePlutusV1 = 1
	ScriptTypePlutusV2 = 2
	ScriptTypePlutusV3 = 3
)

// ScriptRef is a reference script attached to an output: a script type
// discriminant plus the script payload, wrapped in an encoded-CBOR tag on
// the wire. The payload stays raw; native scripts carry their structure,
// Plutus scripts carry their byte string.
type ScriptRef struct {
	Type   uint64
	Script cbor.RawMessage
}

// NewPlutusScriptRef wraps raw Plutus script bytes of the given version.
func NewPlutusScriptRef(version uint64, script []byte) (ScriptRef, error) {
	if version < ScriptTypePlutusV1 || version > ScriptTypePlutusV3 {
		return ScriptRef{}, fmt.Errorf("ledger: unknown plutus version %d", version)
	}
	payload, err := cbor.Marshal(script)
	if err != nil {
		return ScriptRef{}, err
	}
	return ScriptRef{Type: version, Script: payload}, nil
}

// NewNativeScriptRef wraps a native script.
func NewNativeScriptRef(script NativeScript) (ScriptRef, error) {
	payload, err := cbor.Marshal(script)
	if err != nil {
		return ScriptRef{}, err
	}
	return ScriptRef{Type: ScriptTypeNative, Script: payload}, nil
}

func (s ScriptRef) MarshalCBOR() ([]byte, error) {
	inner, err := cbor.Marshal([]interface{}{s.Type, s.Script})
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(cbor.Tag{Number: 24, Content: inner})
}

func (s *ScriptRef) UnmarshalCBOR(data []byte) error {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return err
	}
	if tag.Number != 24 {
		return cbor.NewDecodeError(s, "script ref must be wrapped in tag 24, got %d", tag.Number)
	}
	var payload []byte
	if err := cbor.Unmarshal(tag.Content, &payload); err != nil {
		return err
	}
	var items []cbor.RawMessage
	if err := cbor.Unmarshal(payload, &items); err != nil {
		return err
	}
	if len(items) != 2 {
		return cbor.NewDecodeError(s, "script must have 2 elements, got %d", len(items))
	}
	var scriptType uint64
	if err := cbor.Unmarshal(items[0], &scriptType); err != nil {
		return err
	}
	if scriptType > ScriptTypePlutusV3 {
		return cbor.NewDecodeError(s, "unknown script type discriminant %d", scriptType)
	}
	*s = ScriptRef{Type: scriptType, Script: items[1]}
	return nil
}

// TransactionOutput is a destination, a value, and optional datum/script
// attachments. It has two wire forms: the legacy three-element sequence and
// the post-Alonzo integer-keyed map; decode dispatches on the primitive
// shape, encode picks the map form whenever a post-Alonzo feature is
// present.
type TransactionOutput struct {
	Address    address.Address
	Amount     Value
	DatumHash  *DatumHash
	Datum      cbor.RawMessage
	ScriptRef  *ScriptRef
	PostAlonzo bool
}

// NewTransactionOutput builds a plain payment output.
func NewTransactionOutput(addr address.Address, amount Value) TransactionOutput {
	return TransactionOutput{Address: addr, Amount: amount}
}

// Lovelace is the base-currency quantity of the output.
func (o TransactionOutput) Lovelace() int64 { return o.Amount.Coin }

// Validate rejects values the wire format forbids.
func (o TransactionOutput) Validate() error {
	if o.Amount.HasNegative() {
		return &cbor.EncodeError{Value: o, Err: fmt.Errorf("output cannot hold a negative quantity")}
	}
	return nil
}

func (o TransactionOutput) isPostAlonzo() bool {
	return o.PostAlonzo || len(o.Datum) > 0 || o.ScriptRef != nil
}

type legacyOutput struct {
	Address   address.Address
	Amount    Value
	DatumHash *DatumHash
}

func (l legacyOutput) MarshalCBOR() ([]byte, error) {
	if l.DatumHash != nil {
		return cbor.Marshal([]interface{}{l.Address, l.Amount, *l.DatumHash})
	}
	return cbor.Marshal([]interface{}{l.Address, l.Amount})
}

type postAlonzoOutput struct {
	Address address.Address `cbor:"0,keyasint"`
	Amount  Value           `cbor:"1,keyasint"`
	Datum   *DatumOption    `cbor:"2,keyasint,omitempty"`
	Script  *ScriptRef      `cbor:"3,keyasint,omitempty"`
}

func (o TransactionOutput) MarshalCBOR() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if !o.isPostAlonzo() {
		return cbor.Marshal(legacyOutput{Address: o.Address, Amount: o.Amount, DatumHash: o.DatumHash})
	}
	out := postAlonzoOutput{Address: o.Address, Amount: o.Amount, Script: o.ScriptRef}
	switch {
	case len(o.Datum) > 0:
		datum := NewInlineDatumOption(o.Datum)
		out.Datum = &datum
	case o.DatumHash != nil:
		datum := NewDatumHashOption(*o.DatumHash)
		out.Datum = &datum
	}
	return cbor.Marshal(out)
}

func (o *TransactionOutput) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return cbor.NewDecodeError(o, "empty input")
	}
	switch data[0] >> 5 {
	case 4: // legacy sequence form
		var items []cbor.RawMessage
		if err := cbor.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) < 2 || len(items) > 3 {
			return cbor.NewDecodeError(o, "legacy output must have 2 or 3 elements, got %d", len(items))
		}
		out := TransactionOutput{}
		if err := cbor.Unmarshal(items[0], &out.Address); err != nil {
			return err
		}
		if err := cbor.Unmarshal(items[1], &out.Amount); err != nil {
			return err
		}
		if len(items) == 3 {
			var hash DatumHash
			if err := cbor.Unmarshal(items[2], &hash); err != nil {
				return err
			}
			out.DatumHash = &hash
		}
		*o = out
		return nil
	case 5: // post-Alonzo map form
		var raw postAlonzoOutput
		if err := cbor.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := TransactionOutput{
			Address:    raw.Address,
			Amount:     raw.Amount,
			ScriptRef:  raw.Script,
			PostAlonzo: true,
		}
		if raw.Datum != nil {
			if raw.Datum.Hash != nil {
				out.DatumHash = raw.Datum.Hash
			} else {
				out.Datum = raw.Datum.Data
			}
		}
		*o = out
		return nil
	default:
		return cbor.NewDecodeError(o, "output must be a sequence or a map")
	}
}
