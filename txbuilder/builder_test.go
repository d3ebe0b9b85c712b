package txbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/chain"
	"github.com/mgpai22/argentum/coinselection"
	"github.com/mgpai22/argentum/key"
	"github.com/mgpai22/argentum/ledger"
	"github.com/mgpai22/argentum/plutus"
)

func builderAddress(t *testing.T, b byte) address.Address {
	t.Helper()
	payment := make([]byte, 28)
	payment[0] = b
	addr, err := address.New(payment, nil, address.Mainnet)
	require.NoError(t, err)
	return addr
}

func fundedFixture(t *testing.T, owner address.Address, coins ...int64) *chain.FixedChainContext {
	t.Helper()
	fixture := chain.NewFixedChainContext()
	for i, coin := range coins {
		id := ledger.TransactionID(ledger.Blake2b256Hash([]byte{byte(i)}))
		fixture.AddUTxO(ledger.NewUTxO(
			ledger.NewTransactionInput(id, 0),
			ledger.NewTransactionOutput(owner, ledger.NewValue(coin)),
		))
	}
	return fixture
}

func bodyBalance(t *testing.T, fixture *chain.FixedChainContext, body *ledger.TransactionBody) (in, out int64) {
	t.Helper()
	ctx := context.Background()
	for _, input := range body.Inputs {
		utxo, err := fixture.ResolveUTxO(ctx, input)
		require.NoError(t, err)
		in += utxo.Output.Amount.Coin
	}
	out = body.Fee
	for _, o := range body.Outputs {
		out += o.Amount.Coin
	}
	return in, out
}

func TestBuild_SingleInputWithChange(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)
	fixture := fundedFixture(t, owner, 900_000_000_000)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(100_000_000_000))))

	body, err := builder.Build(context.Background(), owner, false)
	require.NoError(t, err)

	require.Len(t, body.Inputs, 1)
	require.Len(t, body.Outputs, 2)
	assert.Equal(t, int64(100_000_000_000), body.Outputs[0].Amount.Coin)
	assert.True(t, body.Outputs[1].Address.Equal(owner))

	// Exact balance: input == output + change + fee.
	in, out := bodyBalance(t, fixture, body)
	assert.Equal(t, in, out)
	assert.Equal(t, int64(900_000_000_000)-100_000_000_000-body.Fee,
		body.Outputs[1].Amount.Coin)

	params := chain.DefaultProtocolParameters()
	assert.Greater(t, body.Fee, params.MinFeeConstant)
	assert.Less(t, body.Fee, MaxTxFee(params))
}

func TestBuild_SelectsMoreInputsWhenNeeded(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)
	fixture := fundedFixture(t, owner, 5_000_000, 5_000_000, 5_000_000)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(8_000_000))))

	body, err := builder.Build(context.Background(), owner, false)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(body.Inputs), 2)
	in, out := bodyBalance(t, fixture, body)
	assert.Equal(t, in, out)
}

func TestBuild_MergeChangeConsolidatesDestinations(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)
	fixture := fundedFixture(t, owner, 50_000_000)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(5_000_000))))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(5_000_000))))

	body, err := builder.Build(context.Background(), owner, true)
	require.NoError(t, err)

	// One output per distinct destination: payee and the change address.
	require.Len(t, body.Outputs, 2)
	assert.True(t, body.Outputs[0].Address.Equal(payee))
	assert.Equal(t, int64(10_000_000), body.Outputs[0].Amount.Coin)
	assert.True(t, body.Outputs[1].Address.Equal(owner))

	in, out := bodyBalance(t, fixture, body)
	assert.Equal(t, in, out)
}

func TestBuild_MergeChangeIntoExistingOutput(t *testing.T) {
	owner := builderAddress(t, 1)
	fixture := fundedFixture(t, owner, 50_000_000)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	// Paying the change address itself: change folds into this output.
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(owner, ledger.NewValue(5_000_000))))

	body, err := builder.Build(context.Background(), owner, true)
	require.NoError(t, err)

	require.Len(t, body.Outputs, 1)
	assert.Equal(t, int64(50_000_000)-body.Fee, body.Outputs[0].Amount.Coin)
}

func TestBuild_TopsUpExplicitInput(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)

	explicit := ledger.NewUTxO(
		ledger.NewTransactionInput(ledger.Blake2b256Hash([]byte{0x10}), 0),
		ledger.NewTransactionOutput(owner, ledger.NewValue(8_000_000)))
	pool := ledger.NewUTxO(
		ledger.NewTransactionInput(ledger.Blake2b256Hash([]byte{0x11}), 0),
		ledger.NewTransactionOutput(owner, ledger.NewValue(20_000_000)))
	fixture := chain.NewFixedChainContext()
	fixture.AddUTxO(explicit)
	fixture.AddUTxO(pool)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInput(explicit))
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(10_000_000))))

	// The explicit input alone cannot cover the payment; selection must
	// top it up from the pool instead of counting it twice.
	body, err := builder.Build(context.Background(), owner, false)
	require.NoError(t, err)

	require.Len(t, body.Inputs, 2)
	in, out := bodyBalance(t, fixture, body)
	assert.Equal(t, in, out)
}

func TestBuild_ExplicitInputShortWithEmptyPool(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)

	explicit := ledger.NewUTxO(
		ledger.NewTransactionInput(ledger.Blake2b256Hash([]byte{0x10}), 0),
		ledger.NewTransactionOutput(owner, ledger.NewValue(8_000_000)))
	fixture := chain.NewFixedChainContext()
	fixture.AddUTxO(explicit)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInput(explicit))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(10_000_000))))

	_, err := builder.Build(context.Background(), owner, false)

	var insufficient *coinselection.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Positive(t, insufficient.Shortfall)
}

func TestBuild_MinChangeShortfallSelectsSecondInput(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)
	fixture := fundedFixture(t, owner, 10_500_000, 5_000_000)
	params := chain.DefaultProtocolParameters()

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(10_000_000))))

	// The first input leaves change below the output minimum; the
	// shortfall must pull in the second input rather than loop forever.
	body, err := builder.Build(context.Background(), owner, false)
	require.NoError(t, err)

	require.Len(t, body.Inputs, 2)
	require.Len(t, body.Outputs, 2)
	min, err := MinLovelacePostAlonzo(body.Outputs[1], params)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, body.Outputs[1].Amount.Coin, min)
	in, out := bodyBalance(t, fixture, body)
	assert.Equal(t, in, out)
}

func TestBuild_InsufficientFunds(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)
	fixture := fundedFixture(t, owner, 1_000_000)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(10_000_000))))

	_, err := builder.Build(context.Background(), owner, false)

	var insufficient *coinselection.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Positive(t, insufficient.Shortfall)
}

func TestBuild_ConsumesBuilder(t *testing.T) {
	owner := builderAddress(t, 1)
	fixture := fundedFixture(t, owner, 50_000_000)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(owner, ledger.NewValue(5_000_000))))

	_, err := builder.Build(context.Background(), owner, true)
	require.NoError(t, err)

	var stateErr *StateError
	require.ErrorAs(t, builder.AddOutput(
		ledger.NewTransactionOutput(owner, ledger.NewValue(1))), &stateErr)

	_, err = builder.Build(context.Background(), owner, true)
	require.ErrorAs(t, err, &stateErr)
}

func TestBuild_FeeBufferInflatesFee(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)

	run := func(buffer int64) int64 {
		fixture := fundedFixture(t, owner, 900_000_000_000)
		builder := NewBuilder(fixture)
		require.NoError(t, builder.AddInputAddress(owner))
		require.NoError(t, builder.AddOutput(
			ledger.NewTransactionOutput(payee, ledger.NewValue(100_000_000_000))))
		require.NoError(t, builder.SetFeeBuffer(buffer))
		body, err := builder.Build(context.Background(), owner, false)
		require.NoError(t, err)
		return body.Fee
	}

	plain := run(0)
	buffered := run(1_000_000)
	assert.Equal(t, plain+1_000_000, buffered)
}

func TestBuild_StakeRegistrationTakesDeposit(t *testing.T) {
	owner := builderAddress(t, 1)
	fixture := fundedFixture(t, owner, 50_000_000)
	params := chain.DefaultProtocolParameters()

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	var stakeHash ledger.AddrKeyHash
	stakeHash[0] = 0xbe
	require.NoError(t, builder.AddCertificate(
		ledger.StakeRegistration{Credential: ledger.NewKeyCredential(stakeHash)}))

	body, err := builder.Build(context.Background(), owner, false)
	require.NoError(t, err)

	require.Len(t, body.Certificates, 1)
	require.Len(t, body.Outputs, 1)
	assert.Equal(t, int64(50_000_000)-params.KeyDeposit-body.Fee,
		body.Outputs[0].Amount.Coin)
}

func TestBuildAndSign_ProducesValidWitness(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)
	fixture := fundedFixture(t, owner, 900_000_000_000)

	pair, err := key.GenerateKeyPair()
	require.NoError(t, err)

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(100_000_000_000))))

	tx, err := builder.BuildAndSign(context.Background(), []key.KeyPair{pair}, owner, false)
	require.NoError(t, err)
	require.Len(t, tx.WitnessSet.VKeyWitnesses, 1)

	hash, err := tx.Body.Hash()
	require.NoError(t, err)
	assert.True(t, pair.VerificationKey.Verify(hash[:], tx.WitnessSet.VKeyWitnesses[0].Signature))

	id, err := fixture.SubmitTx(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, hash, id)
}

// evaluatingContext records every transaction handed to EvaluateTx so the
// evaluated candidate itself can be inspected.
type evaluatingContext struct {
	*chain.FixedChainContext
	budgets   map[plutus.RedeemerKey]plutus.ExecutionUnits
	evaluated []*ledger.Transaction
}

func (c *evaluatingContext) EvaluateTx(_ context.Context, tx *ledger.Transaction) (map[plutus.RedeemerKey]plutus.ExecutionUnits, error) {
	c.evaluated = append(c.evaluated, tx)
	out := map[plutus.RedeemerKey]plutus.ExecutionUnits{}
	for key := range tx.WitnessSet.Redeemers {
		out[key] = c.budgets[key]
	}
	return out, nil
}

func TestBuild_EstimatesUnitsOnBalancedCandidate(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)

	script := plutus.V2Script{0x01, 0x02}
	hash, err := plutus.ScriptHash(script)
	require.NoError(t, err)
	scriptAddr, err := address.FromParts(address.ScriptNone, address.Mainnet, hash[:], nil)
	require.NoError(t, err)
	locked := ledger.NewUTxO(
		ledger.NewTransactionInput(ledger.Blake2b256Hash([]byte{0x20}), 0),
		ledger.NewTransactionOutput(scriptAddr, ledger.NewValue(20_000_000)))

	fixture := chain.NewFixedChainContext()
	fixture.AddUTxO(locked)
	spendKey := plutus.RedeemerKey{Tag: plutus.TagSpend, Index: 0}
	ectx := &evaluatingContext{
		FixedChainContext: fixture,
		budgets: map[plutus.RedeemerKey]plutus.ExecutionUnits{
			spendKey: {Mem: 500_000, Steps: 200_000_000},
		},
	}

	builder := NewBuilder(ectx)
	require.NoError(t, builder.AddScriptInput(locked, script, nil, plutus.NewInt(42), nil))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(10_000_000))))

	tx, err := builder.BuildAndSign(context.Background(), nil, owner, false)
	require.NoError(t, err)

	// The candidate handed to evaluation must itself balance: a real
	// backend phase-2 evaluates it and rejects an unbalanced draft.
	require.Len(t, ectx.evaluated, 1)
	candidate := ectx.evaluated[0]
	in, out := bodyBalance(t, fixture, &candidate.Body)
	assert.Equal(t, in, out)
	assert.GreaterOrEqual(t, len(candidate.Body.Outputs), 2)

	// Measured budgets land in the witness set with the 20% buffers.
	units := tx.WitnessSet.Redeemers[spendKey].ExUnits
	assert.Equal(t, int64(600_000), units.Mem)
	assert.Equal(t, int64(240_000_000), units.Steps)

	// The final fee prices the buffered budget in; the zero-unit
	// measuring candidate is strictly cheaper.
	assert.Greater(t, tx.Body.Fee, candidate.Body.Fee)
	in, out = bodyBalance(t, fixture, &tx.Body)
	assert.Equal(t, in, out)
}

func TestBuild_SplitsChangeOverMaxValSize(t *testing.T) {
	owner := builderAddress(t, 1)
	payee := builderAddress(t, 2)

	assets := ledger.MultiAsset{
		ledger.PolicyID{0x0a}: {"a": 1},
		ledger.PolicyID{0x0b}: {"b": 1},
		ledger.PolicyID{0x0c}: {"c": 1},
	}
	fixture := chain.NewFixedChainContext()
	params := chain.DefaultProtocolParameters()
	params.MaxValSize = 100
	fixture.SetProtocolParameters(params)
	fixture.AddUTxO(ledger.NewUTxO(
		ledger.NewTransactionInput(ledger.Blake2b256Hash([]byte{0x30}), 0),
		ledger.NewTransactionOutput(owner, ledger.NewValueWithAssets(100_000_000, assets))))

	builder := NewBuilder(fixture)
	require.NoError(t, builder.AddInputAddress(owner))
	require.NoError(t, builder.AddOutput(
		ledger.NewTransactionOutput(payee, ledger.NewValue(10_000_000))))

	body, err := builder.Build(context.Background(), owner, false)
	require.NoError(t, err)

	// Three policies do not fit one bundle under the shrunk limit, so the
	// change splits; every split stays under the limit and above minimum.
	require.Len(t, body.Outputs, 3)
	total := ledger.NewValue(0)
	for _, out := range body.Outputs[1:] {
		assert.True(t, out.Address.Equal(owner))
		size, err := BundleSize(out.Amount)
		require.NoError(t, err)
		assert.LessOrEqual(t, size, params.MaxValSize)
		min, err := MinLovelacePostAlonzo(out, params)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Amount.Coin, min)
		total = total.Add(out.Amount)
	}
	for policy := range assets {
		assert.Equal(t, int64(1), total.Assets.Quantity(policy, assets.Names(policy)[0]))
	}
	in, out := bodyBalance(t, fixture, body)
	assert.Equal(t, in, out)
}

func TestFee_LinearFormula(t *testing.T) {
	params := chain.DefaultProtocolParameters()
	assert.Equal(t, params.MinFeeConstant+params.MinFeeCoefficient*200, Fee(params, 200, 0, 0))
	// Script budget rounds up per component.
	withScripts := Fee(params, 200, 1000, 1000)
	assert.Greater(t, withScripts, Fee(params, 200, 0, 0))
}

func TestMinLovelacePostAlonzo_GrowsWithOutputSize(t *testing.T) {
	params := chain.DefaultProtocolParameters()
	small := ledger.NewTransactionOutput(builderAddress(t, 1), ledger.NewValue(1_000_000))

	policy := ledger.PolicyID{0x01}
	big := ledger.NewTransactionOutput(builderAddress(t, 1),
		ledger.NewValueWithAssets(1_000_000, ledger.MultiAsset{policy: {"token": 5}}))

	smallMin, err := MinLovelacePostAlonzo(small, params)
	require.NoError(t, err)
	bigMin, err := MinLovelacePostAlonzo(big, params)
	require.NoError(t, err)
	assert.Greater(t, bigMin, smallMin)
}
