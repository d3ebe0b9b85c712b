package txbuilder

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/coinselection"
	"github.com/mgpai22/argentum/key"
	"github.com/mgpai22/argentum/ledger"
	"github.com/mgpai22/argentum/plutus"
)

// Build runs the fixpoint and returns the frozen transaction body. The
// builder is consumed whether construction succeeds or fails.
func (b *Builder) Build(ctx context.Context, changeAddress address.Address, mergeChange bool) (*ledger.TransactionBody, error) {
	if err := b.ensureMutable("Build"); err != nil {
		return nil, err
	}
	b.consumed = true
	return b.build(ctx, changeAddress, mergeChange)
}

// BuildAndSign finalizes the body, signs its hash with every supplied key
// and returns the full transaction ready for submission.
func (b *Builder) BuildAndSign(ctx context.Context, keys []key.KeyPair, changeAddress address.Address, mergeChange bool) (*ledger.Transaction, error) {
	if err := b.ensureMutable("BuildAndSign"); err != nil {
		return nil, err
	}
	b.consumed = true
	body, err := b.build(ctx, changeAddress, mergeChange)
	if err != nil {
		return nil, err
	}
	hash, err := body.Hash()
	if err != nil {
		return nil, err
	}
	witnesses := b.scriptWitnessSet(nil)
	for _, pair := range keys {
		sig, err := pair.SigningKey.Sign(hash[:])
		if err != nil {
			return nil, err
		}
		witnesses.VKeyWitnesses = append(witnesses.VKeyWitnesses, ledger.VKeyWitness{
			VKey:      pair.VerificationKey.Payload,
			Signature: sig,
		})
	}
	return &ledger.Transaction{
		Body:          *body,
		WitnessSet:    witnesses,
		Valid:         true,
		AuxiliaryData: b.auxiliaryData,
	}, nil
}

func (b *Builder) build(ctx context.Context, changeAddress address.Address, mergeChange bool) (*ledger.TransactionBody, error) {
	if err := b.snapshot(ctx); err != nil {
		return nil, err
	}
	estimate, err := b.prepareExecutionUnits()
	if err != nil {
		return nil, err
	}

	outputs := b.outputs
	if mergeChange {
		outputs = consolidateByAddress(outputs)
	}

	selected, change, fee, err := b.fixpoint(changeAddress, mergeChange, outputs)
	if err != nil {
		return nil, err
	}

	if estimate {
		// Measure against the balanced candidate, then converge again
		// with the real budgets priced in.
		if err := b.measureExecutionUnits(ctx, selected, outputs, change, fee); err != nil {
			return nil, err
		}
		selected, change, fee, err = b.fixpoint(changeAddress, mergeChange, outputs)
		if err != nil {
			return nil, err
		}
	}

	if mergeChange && len(change) > 0 {
		outputs, change = mergeIntoOutputs(outputs, change)
	}

	body, err := b.assembleBody(selected, append(outputs, change...), fee)
	if err != nil {
		return nil, err
	}
	return body, b.validate(body, selected)
}

// fixpoint runs size, select, balance until nothing moves, returning the
// converged input set, change layout and fee.
func (b *Builder) fixpoint(changeAddress address.Address, mergeChange bool, outputs []ledger.TransactionOutput) ([]ledger.UTxO, []ledger.TransactionOutput, int64, error) {
	selected := append([]ledger.UTxO{}, b.inputs...)
	var change []ledger.TransactionOutput
	var fee, extraCoin int64
	prevFee := int64(-1)

	for iteration := 1; ; iteration++ {
		if iteration > b.maxIterations {
			return nil, nil, 0, &BuildError{Iterations: b.maxIterations, Reason: "fee fixpoint did not converge"}
		}

		size, err := b.candidateSize(selected, outputs, change)
		if err != nil {
			return nil, nil, 0, err
		}
		mem, steps := b.totalBudget()
		fee = Fee(*b.params, size, steps, mem) + b.feeBuffer

		b.log.Debug("fixpoint iteration",
			zap.Int("iteration", iteration),
			zap.Int("size", size),
			zap.Int64("fee", fee),
			zap.Int("inputs", len(selected)),
			zap.Int("change_outputs", len(change)))

		provided, requested := b.flows(selected, outputs, fee, extraCoin)
		if !requested.LessOrEqual(provided) {
			// The selector counts preselected value toward coverage, so
			// the target is the unfulfilled delta on top of what the
			// already-selected records carry.
			target := requested.Sub(provided).Clamp()
			for _, u := range selected {
				target = target.Add(u.Output.Amount)
			}
			newSelected, _, err := b.selector.Select(b.available, target, selected)
			if err != nil {
				return nil, nil, 0, err
			}
			if len(newSelected) > len(selected) {
				selected = newSelected
				continue
			}
		}

		provided, requested = b.flows(selected, outputs, fee, 0)
		changeValue := provided.Sub(requested)
		if changeValue.HasNegative() || changeValue.Coin < 0 {
			return nil, nil, 0, deficitError(provided, requested)
		}

		newChange, shortfall, err := b.changeOutputs(changeValue, changeAddress, mergeChange, outputs)
		if err != nil {
			return nil, nil, 0, err
		}
		if shortfall > 0 {
			// Change too small for its own output; demand more coin and
			// let selection find it.
			extraCoin = shortfall
			continue
		}
		extraCoin = 0
		if !sameLayout(newChange, change) {
			change = newChange
			continue
		}
		if fee == prevFee {
			break
		}
		prevFee = fee
	}

	return selected, change, fee, nil
}

// deficitError reports the first asset class the candidate cannot cover.
func deficitError(provided, requested ledger.Value) error {
	if provided.Coin < requested.Coin {
		return &coinselection.InsufficientFundsError{Shortfall: requested.Coin - provided.Coin}
	}
	for _, policy := range requested.Assets.Policies() {
		for _, name := range requested.Assets.Names(policy) {
			want := requested.Assets.Quantity(policy, name)
			have := provided.Assets.Quantity(policy, name)
			if have < want {
				p, n := policy, name
				return &coinselection.InsufficientFundsError{Policy: &p, Asset: &n, Shortfall: want - have}
			}
		}
	}
	return errors.Errorf("candidate is unbalanced by %s", requested.Sub(provided))
}

// snapshot fetches the parameter set and the selectable pool once; every
// fixpoint iteration reuses them.
func (b *Builder) snapshot(ctx context.Context) error {
	if b.params == nil {
		params, err := b.context.ProtocolParameters(ctx)
		if err != nil {
			return errors.Wrap(err, "fetch protocol parameters")
		}
		b.params = &params
	}
	seen := map[ledger.TransactionInput]struct{}{}
	for _, u := range b.inputs {
		seen[u.Input] = struct{}{}
	}
	for _, addr := range b.inputAddresses {
		utxos, err := b.context.UTxOs(ctx, addr)
		if err != nil {
			return errors.Wrapf(err, "fetch utxos for %s", addr)
		}
		for _, u := range utxos {
			if _, ok := b.excluded[u.Input]; ok {
				continue
			}
			if _, ok := seen[u.Input]; ok {
				continue
			}
			seen[u.Input] = struct{}{}
			b.available = append(b.available, u)
		}
	}
	sort.Slice(b.available, func(i, j int) bool {
		return b.available[i].Input.Less(b.available[j].Input)
	})
	return nil
}

func (b *Builder) redeemerDrafts() []*redeemerDraft {
	var drafts []*redeemerDraft
	for i := range b.scriptInputs {
		if b.scriptInputs[i].redeemer != nil {
			drafts = append(drafts, b.scriptInputs[i].redeemer)
		}
	}
	for i := range b.mintingScripts {
		if b.mintingScripts[i].redeemer != nil {
			drafts = append(drafts, b.mintingScripts[i].redeemer)
		}
	}
	return drafts
}

// prepareExecutionUnits zero-fills missing redeemer budgets and reports
// whether they need measuring. Budgets are all explicit or all estimated;
// mixing the two would leave the estimate dependent on placeholder values.
func (b *Builder) prepareExecutionUnits() (bool, error) {
	drafts := b.redeemerDrafts()
	if len(drafts) == 0 {
		return false, nil
	}
	missing := 0
	for _, d := range drafts {
		if d.units == nil {
			missing++
		}
	}
	if missing == 0 {
		return false, nil
	}
	if missing != len(drafts) {
		return false, &StateError{Op: "Build", Reason: "execution units must be supplied for all redeemers or none"}
	}
	for _, d := range drafts {
		d.units = &plutus.ExecutionUnits{}
	}
	return true, nil
}

// measureExecutionUnits evaluates a balanced, fake-witnessed candidate and
// stores the measured budgets with the configured safety buffers applied.
func (b *Builder) measureExecutionUnits(ctx context.Context, selected []ledger.UTxO, outputs, change []ledger.TransactionOutput, fee int64) error {
	tx, err := b.fakeTransaction(selected, outputs, change, fee)
	if err != nil {
		return err
	}
	measured, err := b.context.EvaluateTx(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "evaluate candidate transaction")
	}
	keys, _ := b.redeemerKeys(selected)
	for i, d := range b.redeemerDrafts() {
		budget, ok := measured[keys[i]]
		if !ok {
			return errors.Errorf("evaluation returned no budget for redeemer %s", keys[i])
		}
		d.units = &plutus.ExecutionUnits{
			Mem:   int64(math.Ceil(float64(budget.Mem) * (1 + b.memBuffer))),
			Steps: int64(math.Ceil(float64(budget.Steps) * (1 + b.stepBuffer))),
		}
	}
	return nil
}

func (b *Builder) totalBudget() (mem, steps int64) {
	for _, d := range b.redeemerDrafts() {
		if d.units != nil {
			mem += d.units.Mem
			steps += d.units.Steps
		}
	}
	return mem, steps
}

// flows computes what the candidate provides and what it must cover.
// Burned assets count as demanded, minted assets as provided.
func (b *Builder) flows(selected []ledger.UTxO, outputs []ledger.TransactionOutput, fee, extraCoin int64) (provided, requested ledger.Value) {
	provided = ledger.NewValue(0)
	for _, u := range selected {
		provided = provided.Add(u.Output.Amount)
	}
	for _, amount := range b.withdrawals {
		provided.Coin += amount
	}
	requested = ledger.NewValue(fee + extraCoin)
	for _, out := range outputs {
		requested = requested.Add(out.Amount)
	}
	for _, policy := range b.mint.Policies() {
		for _, name := range b.mint.Names(policy) {
			quantity := b.mint.Quantity(policy, name)
			if quantity > 0 {
				provided = provided.Add(ledger.NewValueWithAssets(0, ledger.MultiAsset{policy: {name: quantity}}))
			} else {
				requested = requested.Add(ledger.NewValueWithAssets(0, ledger.MultiAsset{policy: {name: -quantity}}))
			}
		}
	}
	deposits, refunds := b.certificateFlows()
	requested.Coin += deposits
	provided.Coin += refunds
	return provided, requested
}

func (b *Builder) certificateFlows() (deposits, refunds int64) {
	for _, cert := range b.certificates {
		switch cert.Kind() {
		case ledger.CertStakeRegistration:
			deposits += b.params.KeyDeposit
		case ledger.CertStakeDeregistration:
			refunds += b.params.KeyDeposit
		}
	}
	return deposits, refunds
}

// sortedInputs is the body input order; redeemer indices point into it.
func sortedInputs(selected []ledger.UTxO) []ledger.TransactionInput {
	inputs := make([]ledger.TransactionInput, len(selected))
	for i, u := range selected {
		inputs[i] = u.Input
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Less(inputs[j]) })
	return inputs
}

// redeemerKeys returns, in draft order, the key of each redeemer under the
// current input set, plus the assembled redeemer map.
func (b *Builder) redeemerKeys(selected []ledger.UTxO) ([]plutus.RedeemerKey, plutus.Redeemers) {
	inputs := sortedInputs(selected)
	position := map[ledger.TransactionInput]uint32{}
	for i, in := range inputs {
		position[in] = uint32(i)
	}
	mintPosition := map[ledger.PolicyID]uint32{}
	for i, policy := range b.mint.Policies() {
		mintPosition[policy] = uint32(i)
	}

	var keys []plutus.RedeemerKey
	redeemers := plutus.Redeemers{}
	for _, in := range b.scriptInputs {
		if in.redeemer == nil {
			continue
		}
		k := plutus.RedeemerKey{Tag: plutus.TagSpend, Index: position[in.utxo.Input]}
		keys = append(keys, k)
		redeemers[k] = plutus.RedeemerValue{Data: in.redeemer.data, ExUnits: draftUnits(in.redeemer)}
	}
	for _, ms := range b.mintingScripts {
		if ms.redeemer == nil {
			continue
		}
		k := plutus.RedeemerKey{Tag: plutus.TagMint, Index: mintPosition[ms.policy]}
		keys = append(keys, k)
		redeemers[k] = plutus.RedeemerValue{Data: ms.redeemer.data, ExUnits: draftUnits(ms.redeemer)}
	}
	return keys, redeemers
}

func draftUnits(d *redeemerDraft) plutus.ExecutionUnits {
	if d.units == nil {
		return plutus.ExecutionUnits{}
	}
	return *d.units
}

// scriptWitnessSet gathers every non-signature witness. Redeemer indices
// are computed against the given input set; nil means the explicit inputs.
func (b *Builder) scriptWitnessSet(selected []ledger.UTxO) ledger.WitnessSet {
	if selected == nil {
		selected = b.inputs
	}
	var ws ledger.WitnessSet
	for _, in := range b.scriptInputs {
		if in.native != nil {
			ws.NativeScripts = append(ws.NativeScripts, in.native)
		}
		b.appendPlutusScript(&ws, in.plutus)
		if in.datum != nil && in.utxo.Output.DatumHash != nil {
			ws.PlutusData = append(ws.PlutusData, *in.datum)
		}
	}
	for _, ms := range b.mintingScripts {
		if ms.native != nil {
			ws.NativeScripts = append(ws.NativeScripts, ms.native)
		}
		b.appendPlutusScript(&ws, ms.plutus)
	}
	if _, redeemers := b.redeemerKeys(selected); len(redeemers) > 0 {
		ws.Redeemers = redeemers
	}
	return ws
}

func (b *Builder) appendPlutusScript(ws *ledger.WitnessSet, script plutus.Script) {
	switch s := script.(type) {
	case plutus.V1Script:
		ws.PlutusV1Scripts = append(ws.PlutusV1Scripts, s)
	case plutus.V2Script:
		ws.PlutusV2Scripts = append(ws.PlutusV2Scripts, s)
	case plutus.V3Script:
		ws.PlutusV3Scripts = append(ws.PlutusV3Scripts, s)
	}
}

func (b *Builder) usedCostModels(ws ledger.WitnessSet) plutus.CostModels {
	models := plutus.CostModels{}
	use := func(lang uint64) {
		if model, ok := b.params.CostModels[lang]; ok {
			models[lang] = model
		}
	}
	if len(ws.PlutusV1Scripts) > 0 {
		use(plutus.LanguagePlutusV1)
	}
	if len(ws.PlutusV2Scripts) > 0 {
		use(plutus.LanguagePlutusV2)
	}
	if len(ws.PlutusV3Scripts) > 0 {
		use(plutus.LanguagePlutusV3)
	}
	return models
}

func (b *Builder) assembleBody(selected []ledger.UTxO, outputs []ledger.TransactionOutput, fee int64) (*ledger.TransactionBody, error) {
	body := &ledger.TransactionBody{
		Inputs:          sortedInputs(selected),
		Outputs:         outputs,
		Fee:             fee,
		TTL:             b.ttl,
		Certificates:    b.certificates,
		Withdrawals:     b.withdrawals,
		ValidityStart:   b.validityStart,
		Mint:            b.mint,
		RequiredSigners: b.requiredSigners,
	}
	body.AuxiliaryDataHash = b.auxiliaryData.Hash()

	ws := b.scriptWitnessSet(selected)
	if len(ws.Redeemers) > 0 || len(ws.PlutusData) > 0 {
		var datums []plutus.Data
		datums = append(datums, ws.PlutusData...)
		hash, err := plutus.ScriptDataHash(ws.Redeemers, datums, b.usedCostModels(ws))
		if err != nil {
			return nil, err
		}
		sdh := ledger.ScriptDataHash(hash)
		body.ScriptDataHash = &sdh
	}

	if len(ws.Redeemers) > 0 && len(b.collateral) > 0 {
		if len(b.collateral) > b.params.MaxCollateralInputs {
			return nil, &BuildError{Reason: "too many collateral inputs"}
		}
		body.Collateral = sortedInputs(b.collateral)
		total := (fee*int64(b.params.CollateralPercent) + 99) / 100
		body.TotalCollateral = total
		collateralValue := ledger.NewValue(0)
		for _, u := range b.collateral {
			collateralValue = collateralValue.Add(u.Output.Amount)
		}
		returned := collateralValue.Sub(ledger.NewValue(total))
		if returned.Coin < 0 {
			return nil, &BuildError{Reason: "collateral does not cover the required total"}
		}
		if returned.Coin > 0 || len(returned.Assets) > 0 {
			body.CollateralReturn = &ledger.TransactionOutput{
				Address:    b.collateral[0].Output.Address,
				Amount:     returned,
				PostAlonzo: true,
			}
		}
	}
	return body, nil
}

// fakeTransaction wraps a candidate body with placeholder signatures for
// size measurement and script evaluation.
func (b *Builder) fakeTransaction(selected []ledger.UTxO, outputs, change []ledger.TransactionOutput, fee int64) (*ledger.Transaction, error) {
	body, err := b.assembleBody(selected, append(append([]ledger.TransactionOutput{}, outputs...), change...), fee)
	if err != nil {
		return nil, err
	}
	ws := b.scriptWitnessSet(selected)
	ws.VKeyWitnesses = fakeVKeyWitnesses(b.signerCount(selected))
	return &ledger.Transaction{
		Body:          *body,
		WitnessSet:    ws,
		Valid:         true,
		AuxiliaryData: b.auxiliaryData,
	}, nil
}

func (b *Builder) candidateSize(selected []ledger.UTxO, outputs, change []ledger.TransactionOutput) (int, error) {
	tx, err := b.fakeTransaction(selected, outputs, change, MaxTxFee(*b.params))
	if err != nil {
		return 0, err
	}
	data, err := tx.Bytes()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// signerCount bounds the number of distinct key witnesses the final
// transaction will carry.
func (b *Builder) signerCount(selected []ledger.UTxO) int {
	seen := map[ledger.AddrKeyHash]struct{}{}
	for _, u := range selected {
		addr := u.Output.Address
		if addr.HasScriptPayment() || len(addr.PaymentPart) != 28 {
			continue
		}
		var hash ledger.AddrKeyHash
		copy(hash[:], addr.PaymentPart)
		seen[hash] = struct{}{}
	}
	for _, signer := range b.requiredSigners {
		seen[signer] = struct{}{}
	}
	for _, in := range b.scriptInputs {
		if in.native != nil {
			for _, signer := range ledger.NativeScriptSigners(in.native) {
				seen[signer] = struct{}{}
			}
		}
	}
	for _, ms := range b.mintingScripts {
		if ms.native != nil {
			for _, signer := range ledger.NativeScriptSigners(ms.native) {
				seen[signer] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

func (b *Builder) validate(body *ledger.TransactionBody, selected []ledger.UTxO) error {
	if body.Fee < 0 {
		return &BuildError{Reason: "negative fee"}
	}
	for _, out := range body.Outputs {
		if err := out.Validate(); err != nil {
			return err
		}
	}
	provided, requested := b.flows(selected, body.Outputs, body.Fee, 0)
	if !provided.Equal(requested) {
		return &BuildError{Reason: "finalized body does not balance"}
	}
	data, err := body.Bytes()
	if err != nil {
		return err
	}
	if len(data) > b.params.MaxTxSize {
		return &BuildError{Reason: "transaction exceeds maximum size"}
	}
	return nil
}
