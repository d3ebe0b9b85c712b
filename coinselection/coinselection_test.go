package coinselection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/ledger"
)

func testAddr(t *testing.T) address.Address {
	t.Helper()
	payment := make([]byte, 28)
	payment[0] = 0xaa
	addr, err := address.New(payment, nil, address.Testnet)
	require.NoError(t, err)
	return addr
}

func coinUTxO(t *testing.T, seed byte, coin int64) ledger.UTxO {
	t.Helper()
	id := ledger.TransactionID(ledger.Blake2b256Hash([]byte{seed}))
	return ledger.NewUTxO(
		ledger.NewTransactionInput(id, 0),
		ledger.NewTransactionOutput(testAddr(t), ledger.NewValue(coin)),
	)
}

func assetUTxO(t *testing.T, seed byte, coin int64, policy ledger.PolicyID, name ledger.AssetName, quantity int64) ledger.UTxO {
	t.Helper()
	id := ledger.TransactionID(ledger.Blake2b256Hash([]byte{seed}))
	return ledger.NewUTxO(
		ledger.NewTransactionInput(id, 0),
		ledger.NewTransactionOutput(testAddr(t),
			ledger.NewValueWithAssets(coin, ledger.MultiAsset{policy: {name: quantity}})),
	)
}

func somePolicy(b byte) ledger.PolicyID {
	var p ledger.PolicyID
	for i := range p {
		p[i] = b
	}
	return p
}

func TestLargestFirst_TakesDescendingCoin(t *testing.T) {
	pool := []ledger.UTxO{
		coinUTxO(t, 1, 1_000_000),
		coinUTxO(t, 2, 9_000_000),
		coinUTxO(t, 3, 5_000_000),
	}

	var selector LargestFirstSelector
	selected, leftover, err := selector.Select(pool, ledger.NewValue(10_000_000), nil)
	require.NoError(t, err)

	require.Len(t, selected, 2)
	assert.Equal(t, int64(9_000_000), selected[0].Output.Amount.Coin)
	assert.Equal(t, int64(5_000_000), selected[1].Output.Amount.Coin)
	assert.Equal(t, int64(4_000_000), leftover.Coin)
}

func TestLargestFirst_PreselectedAlwaysKept(t *testing.T) {
	small := coinUTxO(t, 1, 1_000_000)
	pool := []ledger.UTxO{coinUTxO(t, 2, 50_000_000)}

	var selector LargestFirstSelector
	selected, _, err := selector.Select(pool, ledger.NewValue(2_000_000), []ledger.UTxO{small})
	require.NoError(t, err)

	assert.Equal(t, small.Input, selected[0].Input)
	require.Len(t, selected, 2)
}

func TestLargestFirst_InsufficientCoinShortfall(t *testing.T) {
	pool := []ledger.UTxO{coinUTxO(t, 1, 3_000_000)}

	var selector LargestFirstSelector
	_, _, err := selector.Select(pool, ledger.NewValue(5_000_000), nil)

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Nil(t, insufficient.Policy)
	assert.Equal(t, int64(2_000_000), insufficient.Shortfall)
}

func TestLargestFirst_MaxInputsCap(t *testing.T) {
	pool := []ledger.UTxO{
		coinUTxO(t, 1, 1_000_000),
		coinUTxO(t, 2, 1_000_000),
		coinUTxO(t, 3, 1_000_000),
	}

	selector := LargestFirstSelector{MaxInputs: 2}
	_, _, err := selector.Select(pool, ledger.NewValue(2_500_000), nil)

	var tooMany *TooManyInputsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 2, tooMany.Max)
}

func TestAssetClass_CoversEachClass(t *testing.T) {
	policy := somePolicy(1)
	pool := []ledger.UTxO{
		coinUTxO(t, 1, 20_000_000),
		assetUTxO(t, 2, 2_000_000, policy, "token", 10),
		assetUTxO(t, 3, 2_000_000, policy, "token", 3),
	}

	var selector AssetClassSelector
	requested := ledger.NewValueWithAssets(5_000_000, ledger.MultiAsset{policy: {"token": 8}})
	selected, leftover, err := selector.Select(pool, requested, nil)
	require.NoError(t, err)

	// The largest token holder covers the asset class; coin demand pulls in
	// the pure-coin record.
	require.Len(t, selected, 2)
	total := ledger.NewValue(0)
	for _, u := range selected {
		total = total.Add(u.Output.Amount)
	}
	assert.True(t, requested.LessOrEqual(total))
	assert.Equal(t, int64(2), leftover.Assets.Quantity(policy, "token"))
}

func TestAssetClass_EarlierPassCountsTowardLater(t *testing.T) {
	policy := somePolicy(2)
	// One record covers both the asset and the coin requirement.
	pool := []ledger.UTxO{
		assetUTxO(t, 1, 10_000_000, policy, "token", 5),
		coinUTxO(t, 2, 50_000_000),
	}

	var selector AssetClassSelector
	requested := ledger.NewValueWithAssets(8_000_000, ledger.MultiAsset{policy: {"token": 5}})
	selected, _, err := selector.Select(pool, requested, nil)
	require.NoError(t, err)
	assert.Len(t, selected, 1)
}

func TestAssetClass_UnmetAssetIdentified(t *testing.T) {
	policy := somePolicy(3)
	pool := []ledger.UTxO{
		assetUTxO(t, 1, 2_000_000, policy, "token", 4),
	}

	var selector AssetClassSelector
	requested := ledger.NewValueWithAssets(0, ledger.MultiAsset{policy: {"token": 9}})
	_, _, err := selector.Select(pool, requested, nil)

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.NotNil(t, insufficient.Policy)
	assert.Equal(t, policy, *insufficient.Policy)
	assert.Equal(t, ledger.AssetName("token"), *insufficient.Asset)
	assert.Equal(t, int64(5), insufficient.Shortfall)
}

func TestAssetClass_DeterministicAcrossRuns(t *testing.T) {
	policy := somePolicy(4)
	pool := []ledger.UTxO{
		assetUTxO(t, 1, 1_000_000, policy, "token", 7),
		assetUTxO(t, 2, 1_000_000, policy, "token", 7),
		assetUTxO(t, 3, 1_000_000, policy, "token", 7),
	}

	var selector AssetClassSelector
	requested := ledger.NewValueWithAssets(0, ledger.MultiAsset{policy: {"token": 10}})

	first, _, err := selector.Select(pool, requested, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, _, err := selector.Select(pool, requested, nil)
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Input, again[j].Input)
		}
	}
}
