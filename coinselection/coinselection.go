// Package coinselection picks unspent outputs to cover a requested value.
package coinselection

import (
	"fmt"
	"sort"

	"github.com/mgpai22/argentum/ledger"
)

// InsufficientFundsError reports that the available pool cannot cover one
// asset class of the request. A nil Policy means the lovelace class.
type InsufficientFundsError struct {
	Policy    *ledger.PolicyID
	Asset     *ledger.AssetName
	Shortfall int64
}

func (e *InsufficientFundsError) Error() string {
	if e.Policy == nil {
		return fmt.Sprintf("insufficient funds: short %d lovelace", e.Shortfall)
	}
	return fmt.Sprintf("insufficient funds: short %d of %s.%x",
		e.Shortfall, e.Policy, string(*e.Asset))
}

// TooManyInputsError reports that a selection would exceed the configured
// input cap.
type TooManyInputsError struct {
	Max int
}

func (e *TooManyInputsError) Error() string {
	return fmt.Sprintf("selection exceeds maximum of %d inputs", e.Max)
}

// Selector chooses records from the available pool until the requested
// value is covered. Preselected records are always part of the result and
// count toward coverage. Leftover is selected minus requested.
type Selector interface {
	Select(available []ledger.UTxO, requested ledger.Value, preselected []ledger.UTxO) (selected []ledger.UTxO, leftover ledger.Value, err error)
}

func sumUTxOs(utxos []ledger.UTxO) ledger.Value {
	total := ledger.NewValue(0)
	for _, u := range utxos {
		total = total.Add(u.Output.Amount)
	}
	return total
}

// Deterministic scan order: quantity of the keyed class descending, then
// output reference ascending so equal records tie-break stably.
func sortByQuantity(utxos []ledger.UTxO, quantity func(ledger.UTxO) int64) {
	sort.SliceStable(utxos, func(i, j int) bool {
		qi, qj := quantity(utxos[i]), quantity(utxos[j])
		if qi != qj {
			return qi > qj
		}
		return utxos[i].Input.Less(utxos[j].Input)
	})
}

func shortfall(selected, requested ledger.Value) *InsufficientFundsError {
	if selected.Coin < requested.Coin {
		return &InsufficientFundsError{Shortfall: requested.Coin - selected.Coin}
	}
	for _, policy := range requested.Assets.Policies() {
		for _, name := range requested.Assets.Names(policy) {
			want := requested.Assets.Quantity(policy, name)
			have := selected.Assets.Quantity(policy, name)
			if have < want {
				p, n := policy, name
				return &InsufficientFundsError{Policy: &p, Asset: &n, Shortfall: want - have}
			}
		}
	}
	return nil
}
