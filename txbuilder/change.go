package txbuilder

import (
	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/ledger"
)

func mergeable(out ledger.TransactionOutput) bool {
	return out.DatumHash == nil && len(out.Datum) == 0 && out.ScriptRef == nil
}

// consolidateByAddress folds repeated plain outputs to the same address
// into one, keeping the first occurrence's position.
func consolidateByAddress(outputs []ledger.TransactionOutput) []ledger.TransactionOutput {
	var result []ledger.TransactionOutput
	index := map[string]int{}
	for _, out := range outputs {
		key := string(out.Address.Bytes())
		if i, ok := index[key]; ok && mergeable(out) && mergeable(result[i]) {
			result[i].Amount = result[i].Amount.Add(out.Amount)
			continue
		}
		index[key] = len(result)
		result = append(result, out)
	}
	return result
}

// mergeIntoOutputs folds change into the first plain output with the same
// address; unmatched change stays as its own output.
func mergeIntoOutputs(outputs, change []ledger.TransactionOutput) ([]ledger.TransactionOutput, []ledger.TransactionOutput) {
	result := append([]ledger.TransactionOutput{}, outputs...)
	for _, ch := range change {
		merged := false
		for i := range result {
			if mergeable(result[i]) && result[i].Address.Equal(ch.Address) {
				result[i].Amount = result[i].Amount.Add(ch.Amount)
				merged = true
				break
			}
		}
		if !merged {
			result = append(result, ch)
		}
	}
	return result, nil
}

func sameLayout(a, b []ledger.TransactionOutput) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Address.Equal(b[i].Address) || !a[i].Amount.Equal(b[i].Amount) {
			return false
		}
	}
	return true
}

// changeOutputs lays out the change value. A positive shortfall means the
// change cannot yet afford its own output and more coin must be selected.
func (b *Builder) changeOutputs(change ledger.Value, changeAddress address.Address, mergeChange bool, outputs []ledger.TransactionOutput) ([]ledger.TransactionOutput, int64, error) {
	if change.IsZero() {
		return nil, 0, nil
	}

	willMerge := false
	if mergeChange {
		for _, out := range outputs {
			if mergeable(out) && out.Address.Equal(changeAddress) {
				willMerge = true
				break
			}
		}
	}

	single := ledger.TransactionOutput{Address: changeAddress, Amount: change}
	size, err := BundleSize(change)
	if err != nil {
		return nil, 0, err
	}
	if size <= b.params.MaxValSize {
		if willMerge {
			return []ledger.TransactionOutput{single}, 0, nil
		}
		min, err := MinLovelacePostAlonzo(single, *b.params)
		if err != nil {
			return nil, 0, err
		}
		if change.Coin < min {
			return nil, min - change.Coin, nil
		}
		return []ledger.TransactionOutput{single}, 0, nil
	}

	packs, err := b.packAssets(change.Assets)
	if err != nil {
		return nil, 0, err
	}
	result := make([]ledger.TransactionOutput, len(packs))
	remaining := change.Coin
	for i, pack := range packs {
		result[i] = ledger.TransactionOutput{
			Address: changeAddress,
			Amount:  ledger.NewValueWithAssets(0, pack),
		}
		if i == len(packs)-1 {
			break
		}
		// Setting the coin widens the encoding, which can raise the
		// minimum itself; iterate until it holds.
		for {
			min, err := MinLovelacePostAlonzo(result[i], *b.params)
			if err != nil {
				return nil, 0, err
			}
			if result[i].Amount.Coin >= min {
				break
			}
			result[i].Amount.Coin = min
		}
		remaining -= result[i].Amount.Coin
	}
	last := len(packs) - 1
	result[last].Amount.Coin = remaining
	min, err := MinLovelacePostAlonzo(result[last], *b.params)
	if err != nil {
		return nil, 0, err
	}
	if remaining < min {
		return nil, min - remaining, nil
	}
	return result, 0, nil
}

// packAssets partitions a multi-asset map into bundles that each stay
// under the maximum value size once encoded.
func (b *Builder) packAssets(assets ledger.MultiAsset) ([]ledger.MultiAsset, error) {
	var packs []ledger.MultiAsset
	current := ledger.MultiAsset{}
	for _, policy := range assets.Policies() {
		for _, name := range assets.Names(policy) {
			candidate := current.Clone()
			if candidate[policy] == nil {
				candidate[policy] = ledger.Asset{}
			}
			candidate[policy][name] = assets.Quantity(policy, name)
			size, err := BundleSize(ledger.NewValueWithAssets(0, candidate))
			if err != nil {
				return nil, err
			}
			if size > b.params.MaxValSize && len(current) > 0 {
				packs = append(packs, current)
				current = ledger.MultiAsset{policy: {name: assets.Quantity(policy, name)}}
				continue
			}
			current = candidate
		}
	}
	if len(current) > 0 {
		packs = append(packs, current)
	}
	return packs, nil
}
