package txbuilder

import (
	"math"

	"github.com/mgpai22/argentum/cbor"
	"github.com/mgpai22/argentum/chain"
	"github.com/mgpai22/argentum/ledger"
)

// Fee computes the protocol fee for a transaction of the given encoded
// length carrying the given total script budget.
func Fee(params chain.ProtocolParameters, length int, steps, mem int64) int64 {
	fee := params.MinFeeCoefficient*int64(length) + params.MinFeeConstant
	fee += int64(math.Ceil(float64(steps) * params.PriceStep))
	fee += int64(math.Ceil(float64(mem) * params.PriceMem))
	return fee
}

// MaxTxFee is the largest fee any transaction can incur under the given
// parameters. Used as the sizing placeholder so the measured candidate is
// never smaller than the final transaction.
func MaxTxFee(params chain.ProtocolParameters) int64 {
	return Fee(params, params.MaxTxSize, params.MaxTxExSteps, params.MaxTxExMem)
}

// BundleSize is the encoded size of a value, used against MaxValSize.
func BundleSize(v ledger.Value) (int, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// MinLovelacePostAlonzo is the minimum coin an output must carry:
// (160 + encoded output length) * CoinsPerUTxOByte. The constant covers
// the input overhead of eventually spending the output.
func MinLovelacePostAlonzo(output ledger.TransactionOutput, params chain.ProtocolParameters) (int64, error) {
	data, err := cbor.Marshal(&output)
	if err != nil {
		return 0, err
	}
	return (160 + int64(len(data))) * params.CoinsPerUTxOByte, nil
}
