package plutus

import (
	"golang.org/x/crypto/blake2b"

	"github.com/mgpai22/argentum/cbor"
)

// Language discriminants used inside cost model maps.
const (
	LanguagePlutusV1 uint64 = 0
	LanguagePlutusV2 uint64 = 1
	LanguagePlutusV3 uint64 = 2
)

// CostModels maps a language to its operation cost parameters in the
// protocol-defined order.
type CostModels map[uint64][]int64

// ForLanguage returns the model for a language, or nil when absent.
func (c CostModels) ForLanguage(lang uint64) []int64 {
	return c[lang]
}

// ScriptDataHash integrity-checks the script-visible parts of a
// transaction: blake2b-256 over the concatenation of the encoded
// redeemers, the encoded datums (empty when there are none) and the
// encoded cost models of the languages in use.
func ScriptDataHash(redeemers Redeemers, datums []Data, costModels CostModels) ([32]byte, error) {
	redeemerBytes, err := cbor.Marshal(redeemers)
	if err != nil {
		return [32]byte{}, err
	}
	var datumBytes []byte
	if len(datums) > 0 {
		datumBytes = []byte{0x9f}
		for _, d := range datums {
			item, err := d.MarshalCBOR()
			if err != nil {
				return [32]byte{}, err
			}
			datumBytes = append(datumBytes, item...)
		}
		datumBytes = append(datumBytes, 0xff)
	}
	costBytes, err := cbor.Marshal(costModels)
	if err != nil {
		return [32]byte{}, err
	}
	payload := make([]byte, 0, len(redeemerBytes)+len(datumBytes)+len(costBytes))
	payload = append(payload, redeemerBytes...)
	payload = append(payload, datumBytes...)
	payload = append(payload, costBytes...)
	return blake2b.Sum256(payload), nil
}
