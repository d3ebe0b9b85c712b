package coinselection

import (
	"github.com/mgpai22/argentum/ledger"
)

// LargestFirstSelector implements CIP-2 largest-first over lovelace:
// records are taken in descending coin order until the request is covered.
// Non-lovelace classes ride along; coverage of each class is still checked.
type LargestFirstSelector struct {
	// MaxInputs caps the selection size when positive.
	MaxInputs int
}

func (s *LargestFirstSelector) Select(available []ledger.UTxO, requested ledger.Value, preselected []ledger.UTxO) ([]ledger.UTxO, ledger.Value, error) {
	selected := append([]ledger.UTxO{}, preselected...)
	total := sumUTxOs(selected)

	taken := map[ledger.TransactionInput]struct{}{}
	for _, u := range selected {
		taken[u.Input] = struct{}{}
	}

	pool := make([]ledger.UTxO, 0, len(available))
	for _, u := range available {
		if _, ok := taken[u.Input]; !ok {
			pool = append(pool, u)
		}
	}
	sortByQuantity(pool, func(u ledger.UTxO) int64 { return u.Output.Amount.Coin })

	for _, u := range pool {
		if requested.LessOrEqual(total) {
			break
		}
		selected = append(selected, u)
		total = total.Add(u.Output.Amount)
	}

	if err := shortfall(total, requested); err != nil {
		return nil, ledger.Value{}, err
	}
	if s.MaxInputs > 0 && len(selected) > s.MaxInputs {
		return nil, ledger.Value{}, &TooManyInputsError{Max: s.MaxInputs}
	}
	return selected, total.Sub(requested), nil
}
