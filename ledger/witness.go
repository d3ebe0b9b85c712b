package ledger

import (
	"github.com/mgpai22/argentum/cbor"
	"github.com/mgpai22/argentum/plutus"
)

// VKeyWitness pairs a verification key with its signature over the
// transaction body hash.
type VKeyWitness struct {
	_         struct{} `cbor:",toarray"`
	VKey      []byte
	Signature []byte
}

// WitnessSet carries everything that authorizes a transaction body.
// Absent sections are omitted from the encoding entirely.
type WitnessSet struct {
	VKeyWitnesses   []VKeyWitness     `cbor:"0,keyasint,omitempty"`
	NativeScripts   NativeScripts     `cbor:"1,keyasint,omitempty"`
	PlutusV1Scripts []plutus.V1Script `cbor:"3,keyasint,omitempty"`
	PlutusData      []plutus.Data     `cbor:"4,keyasint,omitempty"`
	Redeemers       plutus.Redeemers  `cbor:"5,keyasint,omitempty"`
	PlutusV2Scripts []plutus.V2Script `cbor:"6,keyasint,omitempty"`
	PlutusV3Scripts []plutus.V3Script `cbor:"7,keyasint,omitempty"`
}

// IsEmpty reports whether no section of the witness set is populated.
func (w WitnessSet) IsEmpty() bool {
	return len(w.VKeyWitnesses) == 0 &&
		len(w.NativeScripts) == 0 &&
		len(w.PlutusV1Scripts) == 0 &&
		len(w.PlutusData) == 0 &&
		len(w.Redeemers) == 0 &&
		len(w.PlutusV2Scripts) == 0 &&
		len(w.PlutusV3Scripts) == 0
}

// Merge combines another witness set into this one. Sections append;
// redeemers with the same key are overwritten by the newcomer.
func (w *WitnessSet) Merge(other WitnessSet) {
	w.VKeyWitnesses = append(w.VKeyWitnesses, other.VKeyWitnesses...)
	w.NativeScripts = append(w.NativeScripts, other.NativeScripts...)
	w.PlutusV1Scripts = append(w.PlutusV1Scripts, other.PlutusV1Scripts...)
	w.PlutusData = append(w.PlutusData, other.PlutusData...)
	w.PlutusV2Scripts = append(w.PlutusV2Scripts, other.PlutusV2Scripts...)
	w.PlutusV3Scripts = append(w.PlutusV3Scripts, other.PlutusV3Scripts...)
	if len(other.Redeemers) > 0 {
		if w.Redeemers == nil {
			w.Redeemers = plutus.Redeemers{}
		}
		for k, v := range other.Redeemers {
			w.Redeemers[k] = v
		}
	}
}

// Bytes returns the canonical encoding of the witness set.
func (w WitnessSet) Bytes() ([]byte, error) {
	return cbor.Marshal(w)
}
