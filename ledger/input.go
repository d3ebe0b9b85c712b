package ledger

import "fmt"

// TransactionInput points at the output it spends. It serializes as a
// two-element sequence and is comparable, so it can key maps and be
// deduplicated directly.
type TransactionInput struct {
	_             struct{} `cbor:",toarray"`
	TransactionID TransactionID
	Index         uint16
}

func NewTransactionInput(id TransactionID, index uint16) TransactionInput {
	return TransactionInput{TransactionID: id, Index: index}
}

func (i TransactionInput) String() string {
	return fmt.Sprintf("%s#%d", i.TransactionID, i.Index)
}

// Less is the deterministic input ordering: transaction id bytewise, then
// index. Finalized bodies list their inputs in this order.
func (i TransactionInput) Less(other TransactionInput) bool {
	if i.TransactionID != other.TransactionID {
		return i.TransactionID.String() < other.TransactionID.String()
	}
	return i.Index < other.Index
}
