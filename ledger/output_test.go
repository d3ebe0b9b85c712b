package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/cbor"
)

func testAddress(t *testing.T, b byte) address.Address {
	t.Helper()
	payment := make([]byte, 28)
	for i := range payment {
		payment[i] = b
	}
	addr, err := address.New(payment, nil, address.Mainnet)
	require.NoError(t, err)
	return addr
}

func TestTransactionOutput_LegacyRoundTrip(t *testing.T) {
	out := NewTransactionOutput(testAddress(t, 1), NewValue(5_000_000))

	encoded, err := cbor.Marshal(out)
	require.NoError(t, err)
	// Legacy outputs are two-element sequences.
	assert.Equal(t, byte(0x82), encoded[0])

	var decoded TransactionOutput
	require.NoError(t, cbor.Unmarshal(encoded, &decoded))
	assert.True(t, out.Address.Equal(decoded.Address))
	assert.True(t, out.Amount.Equal(decoded.Amount))

	reencoded, err := cbor.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestTransactionOutput_DatumHashRoundTrip(t *testing.T) {
	hash := DatumHash(Blake2b256Hash([]byte("datum")))
	out := NewTransactionOutput(testAddress(t, 2), NewValue(2_000_000))
	out.DatumHash = &hash

	encoded, err := cbor.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, byte(0x83), encoded[0])

	var decoded TransactionOutput
	require.NoError(t, cbor.Unmarshal(encoded, &decoded))
	require.NotNil(t, decoded.DatumHash)
	assert.Equal(t, hash, *decoded.DatumHash)
}

func TestTransactionOutput_PostAlonzoRoundTrip(t *testing.T) {
	inline, err := cbor.Marshal(uint64(42))
	require.NoError(t, err)

	out := TransactionOutput{
		Address:    testAddress(t, 3),
		Amount:     NewValue(3_000_000),
		Datum:      inline,
		PostAlonzo: true,
	}

	encoded, err := cbor.Marshal(out)
	require.NoError(t, err)
	// Post-Alonzo outputs are maps.
	assert.Equal(t, byte(0xa0), encoded[0]&0xe0)

	var decoded TransactionOutput
	require.NoError(t, cbor.Unmarshal(encoded, &decoded))
	assert.True(t, decoded.PostAlonzo)
	assert.Equal(t, cbor.RawMessage(inline), decoded.Datum)

	reencoded, err := cbor.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestTransactionOutput_ScriptRefRoundTrip(t *testing.T) {
	ref, err := NewPlutusScriptRef(ScriptTypePlutusV2, []byte{0x01, 0x02})
	require.NoError(t, err)

	out := TransactionOutput{
		Address:    testAddress(t, 4),
		Amount:     NewValue(4_000_000),
		ScriptRef:  &ref,
		PostAlonzo: true,
	}

	encoded, err := cbor.Marshal(out)
	require.NoError(t, err)

	var decoded TransactionOutput
	require.NoError(t, cbor.Unmarshal(encoded, &decoded))
	require.NotNil(t, decoded.ScriptRef)
	assert.Equal(t, uint64(ScriptTypePlutusV2), decoded.ScriptRef.Type)
}

func TestTransactionOutput_ValidateRejectsNegative(t *testing.T) {
	out := NewTransactionOutput(testAddress(t, 5), NewValue(-1))
	assert.Error(t, out.Validate())
}

func TestTransactionInput_Ordering(t *testing.T) {
	idA := TransactionID(Blake2b256Hash([]byte("a")))
	idB := TransactionID(Blake2b256Hash([]byte("b")))

	first := NewTransactionInput(idA, 1)
	second := NewTransactionInput(idA, 2)

	assert.True(t, first.Less(second))
	assert.False(t, second.Less(first))

	// Different ids order one way or the other, never both.
	left := NewTransactionInput(idA, 9)
	right := NewTransactionInput(idB, 0)
	assert.NotEqual(t, left.Less(right), right.Less(left))
}
