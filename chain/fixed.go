package chain

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/ledger"
	"github.com/mgpai22/argentum/plutus"
)

// DefaultProtocolParameters returns a parameter set matching recent
// mainnet values. Fixture contexts start from these.
func DefaultProtocolParameters() ProtocolParameters {
	return ProtocolParameters{
		MinFeeCoefficient:   44,
		MinFeeConstant:      155381,
		MaxTxSize:           16384,
		MaxValSize:          5000,
		KeyDeposit:          2_000_000,
		PoolDeposit:         500_000_000,
		CoinsPerUTxOByte:    4310,
		PriceMem:            0.0577,
		PriceStep:           0.0000721,
		MaxTxExMem:          14_000_000,
		MaxTxExSteps:        10_000_000_000,
		CollateralPercent:   150,
		MaxCollateralInputs: 3,
	}
}

// FixedChainContext is an in-memory ChainContext backed by a static UTxO
// set. It never talks to a network; submission records the transaction
// and evaluation returns preset budgets.
type FixedChainContext struct {
	mu        sync.RWMutex
	params    ProtocolParameters
	tipSlot   uint64
	utxos     map[ledger.TransactionInput]ledger.UTxO
	budgets   map[plutus.RedeemerKey]plutus.ExecutionUnits
	submitted []*ledger.Transaction
}

// NewFixedChainContext builds an empty fixture with default parameters.
func NewFixedChainContext() *FixedChainContext {
	return &FixedChainContext{
		params: DefaultProtocolParameters(),
		utxos:  map[ledger.TransactionInput]ledger.UTxO{},
	}
}

// SetProtocolParameters replaces the parameter set.
func (c *FixedChainContext) SetProtocolParameters(params ProtocolParameters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = params
}

// SetTipSlot moves the fixture tip.
func (c *FixedChainContext) SetTipSlot(slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tipSlot = slot
}

// AddUTxO registers an unspent output in the fixture set.
func (c *FixedChainContext) AddUTxO(utxo ledger.UTxO) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.utxos[utxo.Input] = utxo
}

// SetBudgets fixes the execution units EvaluateTx reports.
func (c *FixedChainContext) SetBudgets(budgets map[plutus.RedeemerKey]plutus.ExecutionUnits) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budgets = budgets
}

// Submitted returns every transaction handed to SubmitTx, oldest first.
func (c *FixedChainContext) Submitted() []*ledger.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ledger.Transaction, len(c.submitted))
	copy(out, c.submitted)
	return out
}

func (c *FixedChainContext) ProtocolParameters(context.Context) (ProtocolParameters, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params, nil
}

func (c *FixedChainContext) UTxOs(_ context.Context, addr address.Address) ([]ledger.UTxO, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ledger.UTxO
	for _, utxo := range c.utxos {
		if utxo.Output.Address.Equal(addr) {
			out = append(out, utxo)
		}
	}
	return out, nil
}

func (c *FixedChainContext) LastBlockSlot(context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tipSlot, nil
}

func (c *FixedChainContext) EvaluateTx(_ context.Context, tx *ledger.Transaction) (map[plutus.RedeemerKey]plutus.ExecutionUnits, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := map[plutus.RedeemerKey]plutus.ExecutionUnits{}
	for key := range tx.WitnessSet.Redeemers {
		budget, ok := c.budgets[key]
		if !ok {
			return nil, errors.Errorf("no budget fixed for redeemer %s", key)
		}
		out[key] = budget
	}
	return out, nil
}

func (c *FixedChainContext) SubmitTx(_ context.Context, tx *ledger.Transaction) (ledger.TransactionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := tx.ID()
	if err != nil {
		return ledger.TransactionID{}, err
	}
	c.submitted = append(c.submitted, tx)
	return id, nil
}

func (c *FixedChainContext) ResolveUTxO(_ context.Context, input ledger.TransactionInput) (ledger.UTxO, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	utxo, ok := c.utxos[input]
	if !ok {
		return ledger.UTxO{}, errors.Errorf("unknown utxo %s", input)
	}
	return utxo, nil
}
