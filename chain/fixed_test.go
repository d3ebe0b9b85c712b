package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/ledger"
)

func fixtureAddress(t *testing.T, b byte) address.Address {
	t.Helper()
	payment := make([]byte, 28)
	payment[0] = b
	addr, err := address.New(payment, nil, address.Testnet)
	require.NoError(t, err)
	return addr
}

func TestFixedChainContext_UTxOsByAddress(t *testing.T) {
	fixture := NewFixedChainContext()
	mine := fixtureAddress(t, 1)
	theirs := fixtureAddress(t, 2)

	id := ledger.TransactionID(ledger.Blake2b256Hash([]byte("seed")))
	fixture.AddUTxO(ledger.NewUTxO(
		ledger.NewTransactionInput(id, 0),
		ledger.NewTransactionOutput(mine, ledger.NewValue(7_000_000)),
	))
	fixture.AddUTxO(ledger.NewUTxO(
		ledger.NewTransactionInput(id, 1),
		ledger.NewTransactionOutput(theirs, ledger.NewValue(3_000_000)),
	))

	utxos, err := fixture.UTxOs(context.Background(), mine)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, int64(7_000_000), utxos[0].Output.Amount.Coin)
}

func TestFixedChainContext_ResolveUTxO(t *testing.T) {
	fixture := NewFixedChainContext()
	id := ledger.TransactionID(ledger.Blake2b256Hash([]byte("ref")))
	input := ledger.NewTransactionInput(id, 4)
	fixture.AddUTxO(ledger.NewUTxO(input,
		ledger.NewTransactionOutput(fixtureAddress(t, 3), ledger.NewValue(1)),
	))

	utxo, err := fixture.ResolveUTxO(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input, utxo.Input)

	_, err = fixture.ResolveUTxO(context.Background(), ledger.NewTransactionInput(id, 9))
	assert.Error(t, err)
}

func TestFixedChainContext_SubmitRecordsAndReturnsID(t *testing.T) {
	fixture := NewFixedChainContext()
	tx := &ledger.Transaction{
		Body: ledger.TransactionBody{
			Inputs:  []ledger.TransactionInput{},
			Outputs: []ledger.TransactionOutput{},
			Fee:     1,
		},
		Valid: true,
	}

	id, err := fixture.SubmitTx(context.Background(), tx)
	require.NoError(t, err)

	expected, err := tx.ID()
	require.NoError(t, err)
	assert.Equal(t, expected, id)
	assert.Len(t, fixture.Submitted(), 1)
}

func TestDefaultProtocolParameters_FeeConstants(t *testing.T) {
	params := DefaultProtocolParameters()
	assert.Equal(t, int64(44), params.MinFeeCoefficient)
	assert.Equal(t, int64(155381), params.MinFeeConstant)
	assert.Equal(t, 16384, params.MaxTxSize)
}
