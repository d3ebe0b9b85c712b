package plutus

import (
	"fmt"
	"sort"

	"github.com/mgpai22/argentum/cbor"
)

// RedeemerTag identifies the kind of script purpose a redeemer pays for.
type RedeemerTag uint8

const (
	TagSpend RedeemerTag = iota
	TagMint
	TagCert
	TagReward
)

func (t RedeemerTag) String() string {
	switch t {
	case TagSpend:
		return "spend"
	case TagMint:
		return "mint"
	case TagCert:
		return "cert"
	case TagReward:
		return "reward"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// ExecutionUnits is a script execution budget.
type ExecutionUnits struct {
	_     struct{} `cbor:",toarray"`
	Mem   int64
	Steps int64
}

// Add accumulates another budget into this one.
func (e *ExecutionUnits) Add(other ExecutionUnits) {
	e.Mem += other.Mem
	e.Steps += other.Steps
}

// RedeemerKey identifies a redeemer within a transaction.
type RedeemerKey struct {
	Tag   RedeemerTag
	Index uint32
}

func (k RedeemerKey) String() string {
	return fmt.Sprintf("%s:%d", k.Tag, k.Index)
}

// RedeemerValue is the payload a redeemer carries.
type RedeemerValue struct {
	Data    Data
	ExUnits ExecutionUnits
}

// Redeemer is the flat wire shape used inside the witness set.
type Redeemer struct {
	_       struct{} `cbor:",toarray"`
	Tag     RedeemerTag
	Index   uint32
	Data    Data
	ExUnits ExecutionUnits
}

// Redeemers maps script purposes to their payloads. The wire form is the
// map shape; the legacy array of flat redeemers is accepted on decode.
type Redeemers map[RedeemerKey]RedeemerValue

// Keys returns the redeemer keys ordered by tag then index.
func (r Redeemers) Keys() []RedeemerKey {
	keys := make([]RedeemerKey, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Tag != keys[j].Tag {
			return keys[i].Tag < keys[j].Tag
		}
		return keys[i].Index < keys[j].Index
	})
	return keys
}

type redeemerMapValue struct {
	_       struct{} `cbor:",toarray"`
	Data    Data
	ExUnits ExecutionUnits
}

func (r Redeemers) MarshalCBOR() ([]byte, error) {
	out := map[RedeemerKey]redeemerMapValue{}
	for k, v := range r {
		out[k] = redeemerMapValue{Data: v.Data, ExUnits: v.ExUnits}
	}
	return cbor.Marshal(out)
}

func (r *Redeemers) UnmarshalCBOR(data []byte) error {
	if len(data) == 0 {
		return cbor.NewDecodeError(r, "empty input")
	}
	result := Redeemers{}
	switch cbor.MajorType(data[0]) {
	case cbor.MajorArray:
		var flat []Redeemer
		if err := cbor.Unmarshal(data, &flat); err != nil {
			return err
		}
		for _, item := range flat {
			result[RedeemerKey{Tag: item.Tag, Index: item.Index}] = RedeemerValue{
				Data:    item.Data,
				ExUnits: item.ExUnits,
			}
		}
	case cbor.MajorMap:
		decoded := map[RedeemerKey]redeemerMapValue{}
		if err := cbor.Unmarshal(data, &decoded); err != nil {
			return err
		}
		for k, v := range decoded {
			result[k] = RedeemerValue{Data: v.Data, ExUnits: v.ExUnits}
		}
	default:
		return cbor.NewDecodeError(r, "unexpected major type %d for redeemers", cbor.MajorType(data[0]))
	}
	*r = result
	return nil
}

func (k RedeemerKey) MarshalCBOR() ([]byte, error) {
	out := cbor.AppendHeader(nil, cbor.MajorArray, 2)
	out = cbor.AppendHeader(out, cbor.MajorUnsigned, uint64(k.Tag))
	out = cbor.AppendHeader(out, cbor.MajorUnsigned, uint64(k.Index))
	return out, nil
}

func (k *RedeemerKey) UnmarshalCBOR(data []byte) error {
	var pair struct {
		_     struct{} `cbor:",toarray"`
		Tag   RedeemerTag
		Index uint32
	}
	if err := cbor.Unmarshal(data, &pair); err != nil {
		return err
	}
	k.Tag = pair.Tag
	k.Index = pair.Index
	return nil
}
