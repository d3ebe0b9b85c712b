package ledger

// UTxO is a spendable record: the reference that identifies it and the
// output it materializes. Records are atomic; selection either spends one
// whole or not at all.
type UTxO struct {
	_      struct{} `cbor:",toarray"`
	Input  TransactionInput
	Output TransactionOutput
}

func NewUTxO(input TransactionInput, output TransactionOutput) UTxO {
	return UTxO{Input: input, Output: output}
}

// Ref returns the identifying (transaction id, output index) pair.
func (u UTxO) Ref() TransactionInput { return u.Input }

func (u UTxO) String() string { return u.Input.String() }
