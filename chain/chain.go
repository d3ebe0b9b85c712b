// Package chain abstracts the view of the network a transaction builder
// needs: protocol parameters, the current tip, UTxO lookups, script
// evaluation and submission.
package chain

import (
	"context"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/ledger"
	"github.com/mgpai22/argentum/plutus"
)

// ProtocolParameters is the subset of the protocol parameter set that
// transaction construction depends on.
type ProtocolParameters struct {
	MinFeeCoefficient   int64
	MinFeeConstant      int64
	MaxTxSize           int
	MaxValSize          int
	KeyDeposit          int64
	PoolDeposit         int64
	CoinsPerUTxOByte    int64
	PriceMem            float64
	PriceStep           float64
	MaxTxExMem          int64
	MaxTxExSteps        int64
	CollateralPercent   int
	MaxCollateralInputs int
	CostModels          plutus.CostModels
}

// ChainContext is what the builder talks to. Implementations may be a
// remote indexer, a local node or a fixture.
type ChainContext interface {
	// ProtocolParameters returns the currently active parameter set.
	ProtocolParameters(ctx context.Context) (ProtocolParameters, error)
	// UTxOs returns the unspent outputs held by an address.
	UTxOs(ctx context.Context, addr address.Address) ([]ledger.UTxO, error)
	// LastBlockSlot returns the slot of the chain tip.
	LastBlockSlot(ctx context.Context) (uint64, error)
	// EvaluateTx measures the execution budget of each redeemer in a
	// draft transaction.
	EvaluateTx(ctx context.Context, tx *ledger.Transaction) (map[plutus.RedeemerKey]plutus.ExecutionUnits, error)
	// SubmitTx sends a signed transaction to the network and returns
	// its identifier.
	SubmitTx(ctx context.Context, tx *ledger.Transaction) (ledger.TransactionID, error)
}

// UTxOResolver is an optional capability of a ChainContext: resolving an
// output reference directly, used for reference inputs and collateral
// that do not come from the selection set.
type UTxOResolver interface {
	ResolveUTxO(ctx context.Context, input ledger.TransactionInput) (ledger.UTxO, error)
}
