package ledger

import (
	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/cbor"
)

// TransactionBody is the signed portion of a transaction. Field tags are
// the ledger map keys; absent fields are omitted from the encoding so the
// body hash only covers what is present.
type TransactionBody struct {
	Inputs            []TransactionInput        `cbor:"0,keyasint"`
	Outputs           []TransactionOutput       `cbor:"1,keyasint"`
	Fee               int64                     `cbor:"2,keyasint"`
	TTL               uint64                    `cbor:"3,keyasint,omitempty"`
	Certificates      Certificates              `cbor:"4,keyasint,omitempty"`
	Withdrawals       map[cbor.ByteString]int64 `cbor:"5,keyasint,omitempty"`
	AuxiliaryDataHash *AuxiliaryDataHash        `cbor:"7,keyasint,omitempty"`
	ValidityStart     uint64                    `cbor:"8,keyasint,omitempty"`
	Mint              MultiAsset                `cbor:"9,keyasint,omitempty"`
	ScriptDataHash    *ScriptDataHash           `cbor:"11,keyasint,omitempty"`
	Collateral        []TransactionInput        `cbor:"13,keyasint,omitempty"`
	RequiredSigners   []AddrKeyHash             `cbor:"14,keyasint,omitempty"`
	NetworkID         *uint8                    `cbor:"15,keyasint,omitempty"`
	CollateralReturn  *TransactionOutput        `cbor:"16,keyasint,omitempty"`
	TotalCollateral   int64                     `cbor:"17,keyasint,omitempty"`
	ReferenceInputs   []TransactionInput        `cbor:"18,keyasint,omitempty"`
}

// Bytes returns the canonical encoding of the body.
func (b *TransactionBody) Bytes() ([]byte, error) {
	return cbor.Marshal(b)
}

// Hash computes the transaction identifier: blake2b-256 over the canonical
// body encoding.
func (b *TransactionBody) Hash() (TransactionID, error) {
	var id TransactionID
	data, err := b.Bytes()
	if err != nil {
		return id, err
	}
	return TransactionID(Blake2b256Hash(data)), nil
}

// OutputValue sums all produced output amounts plus the fee.
func (b *TransactionBody) OutputValue() Value {
	total := NewValue(b.Fee)
	for _, out := range b.Outputs {
		total = total.Add(out.Amount)
	}
	return total
}

// AuxiliaryData is metadata attached outside the body. The content is kept
// verbatim; only its hash participates in the body.
type AuxiliaryData struct {
	Raw cbor.RawMessage
}

// IsEmpty reports whether there is no auxiliary content.
func (a AuxiliaryData) IsEmpty() bool { return len(a.Raw) == 0 }

// Hash returns the auxiliary data hash for the body, or nil when empty.
func (a AuxiliaryData) Hash() *AuxiliaryDataHash {
	if a.IsEmpty() {
		return nil
	}
	h := AuxiliaryDataHash(Blake2b256Hash(a.Raw))
	return &h
}

func (a AuxiliaryData) MarshalCBOR() ([]byte, error) {
	if a.IsEmpty() {
		return []byte{0xf6}, nil
	}
	return append([]byte{}, a.Raw...), nil
}

func (a *AuxiliaryData) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && data[0] == 0xf6 {
		a.Raw = nil
		return nil
	}
	a.Raw = append(cbor.RawMessage{}, data...)
	return nil
}

// Transaction is the full wire transaction.
type Transaction struct {
	_             struct{} `cbor:",toarray"`
	Body          TransactionBody
	WitnessSet    WitnessSet
	Valid         bool
	AuxiliaryData AuxiliaryData
}

// Bytes returns the canonical encoding of the transaction.
func (t *Transaction) Bytes() ([]byte, error) {
	return cbor.Marshal(t)
}

// ID returns the transaction identifier, the hash of the body.
func (t *Transaction) ID() (TransactionID, error) {
	return t.Body.Hash()
}

// OutputAddresses lists the distinct addresses the transaction pays to.
func (t *Transaction) OutputAddresses() []address.Address {
	seen := map[string]struct{}{}
	var out []address.Address
	for _, o := range t.Body.Outputs {
		key := string(o.Address.Bytes())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o.Address)
	}
	return out
}
