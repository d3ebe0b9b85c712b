package coinselection

import (
	"sort"

	"github.com/mgpai22/argentum/ledger"
)

// AssetClassSelector covers the request one asset class at a time. Classes
// are processed largest-requested first, lovelace last, and each pass scans
// the remaining pool in descending per-class quantity. Records taken by an
// earlier pass are not taken again; whatever they carry counts toward the
// later classes too.
type AssetClassSelector struct {
	// MaxInputs caps the selection size when positive.
	MaxInputs int
}

type assetClass struct {
	policy   *ledger.PolicyID
	name     *ledger.AssetName
	quantity int64
}

func requestedClasses(requested ledger.Value) []assetClass {
	var classes []assetClass
	for _, policy := range requested.Assets.Policies() {
		for _, name := range requested.Assets.Names(policy) {
			p, n := policy, name
			classes = append(classes, assetClass{
				policy:   &p,
				name:     &n,
				quantity: requested.Assets.Quantity(policy, name),
			})
		}
	}
	// Largest demand first; sort keys already give a stable order for ties.
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].quantity > classes[j].quantity
	})
	if requested.Coin > 0 {
		classes = append(classes, assetClass{quantity: requested.Coin})
	}
	return classes
}

func classQuantity(u ledger.UTxO, class assetClass) int64 {
	if class.policy == nil {
		return u.Output.Amount.Coin
	}
	return u.Output.Amount.Assets.Quantity(*class.policy, *class.name)
}

func (s *AssetClassSelector) Select(available []ledger.UTxO, requested ledger.Value, preselected []ledger.UTxO) ([]ledger.UTxO, ledger.Value, error) {
	selected := append([]ledger.UTxO{}, preselected...)
	total := sumUTxOs(selected)

	taken := map[ledger.TransactionInput]struct{}{}
	for _, u := range selected {
		taken[u.Input] = struct{}{}
	}

	for _, class := range requestedClasses(requested) {
		covered := func() int64 {
			if class.policy == nil {
				return total.Coin
			}
			return total.Assets.Quantity(*class.policy, *class.name)
		}
		if covered() >= class.quantity {
			continue
		}

		pool := make([]ledger.UTxO, 0, len(available))
		for _, u := range available {
			if _, ok := taken[u.Input]; ok {
				continue
			}
			if classQuantity(u, class) > 0 {
				pool = append(pool, u)
			}
		}
		sortByQuantity(pool, func(u ledger.UTxO) int64 { return classQuantity(u, class) })

		for _, u := range pool {
			if covered() >= class.quantity {
				break
			}
			selected = append(selected, u)
			total = total.Add(u.Output.Amount)
			taken[u.Input] = struct{}{}
		}

		if covered() < class.quantity {
			return nil, ledger.Value{}, &InsufficientFundsError{
				Policy:    class.policy,
				Asset:     class.name,
				Shortfall: class.quantity - covered(),
			}
		}
	}

	if err := shortfall(total, requested); err != nil {
		return nil, ledger.Value{}, err
	}
	if s.MaxInputs > 0 && len(selected) > s.MaxInputs {
		return nil, ledger.Value{}, &TooManyInputsError{Max: s.MaxInputs}
	}
	return selected, total.Sub(requested), nil
}
