// Package txbuilder assembles balanced transactions. A Builder accumulates
// requirements, then Build runs the size, fee, select, balance fixpoint
// until the candidate stops changing and returns a frozen body. A builder
// that has produced a body (or failed doing so) is consumed and rejects
// further use.
package txbuilder

import (
	"go.uber.org/zap"

	"github.com/mgpai22/argentum/address"
	"github.com/mgpai22/argentum/cbor"
	"github.com/mgpai22/argentum/chain"
	"github.com/mgpai22/argentum/coinselection"
	"github.com/mgpai22/argentum/ledger"
	"github.com/mgpai22/argentum/plutus"
)

const (
	defaultMaxIterations = 50
	defaultMemBuffer     = 0.2
	defaultStepBuffer    = 0.2
)

// Option adjusts a Builder at construction time.
type Option func(*Builder)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// WithSelector replaces the default asset-class coin selector.
func WithSelector(s coinselection.Selector) Option {
	return func(b *Builder) { b.selector = s }
}

// WithExecutionBuffers sets the safety margins applied to estimated
// execution units. Defaults are 20% for both memory and steps.
func WithExecutionBuffers(mem, steps float64) Option {
	return func(b *Builder) {
		b.memBuffer = mem
		b.stepBuffer = steps
	}
}

// WithMaxIterations overrides the fixpoint iteration cap.
func WithMaxIterations(n int) Option {
	return func(b *Builder) { b.maxIterations = n }
}

type redeemerDraft struct {
	data  plutus.Data
	units *plutus.ExecutionUnits
}

type scriptInput struct {
	utxo     ledger.UTxO
	plutus   plutus.Script
	native   ledger.NativeScript
	datum    *plutus.Data
	redeemer *redeemerDraft
}

type mintingScript struct {
	policy   ledger.PolicyID
	plutus   plutus.Script
	native   ledger.NativeScript
	redeemer *redeemerDraft
}

// Builder accumulates transaction requirements against one chain snapshot.
// Not safe for concurrent use; one builder builds one transaction.
type Builder struct {
	context       chain.ChainContext
	log           *zap.Logger
	selector      coinselection.Selector
	memBuffer     float64
	stepBuffer    float64
	maxIterations int

	params    *chain.ProtocolParameters
	available []ledger.UTxO

	inputs          []ledger.UTxO
	scriptInputs    []scriptInput
	inputAddresses  []address.Address
	excluded        map[ledger.TransactionInput]struct{}
	outputs         []ledger.TransactionOutput
	certificates    ledger.Certificates
	withdrawals     map[cbor.ByteString]int64
	mint            ledger.MultiAsset
	mintingScripts  []mintingScript
	ttl             uint64
	validityStart   uint64
	auxiliaryData   ledger.AuxiliaryData
	requiredSigners []ledger.AddrKeyHash
	collateral      []ledger.UTxO
	feeBuffer       int64

	consumed bool
}

// NewBuilder creates a builder over the given chain context.
func NewBuilder(context chain.ChainContext, opts ...Option) *Builder {
	b := &Builder{
		context:       context,
		log:           zap.NewNop(),
		selector:      &coinselection.AssetClassSelector{},
		memBuffer:     defaultMemBuffer,
		stepBuffer:    defaultStepBuffer,
		maxIterations: defaultMaxIterations,
		excluded:      map[ledger.TransactionInput]struct{}{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) ensureMutable(op string) error {
	if b.consumed {
		return &StateError{Op: op, Reason: "builder already consumed"}
	}
	return nil
}

// AddInput marks an unspent output as a mandatory input.
func (b *Builder) AddInput(utxo ledger.UTxO) error {
	if err := b.ensureMutable("AddInput"); err != nil {
		return err
	}
	b.inputs = append(b.inputs, utxo)
	return nil
}

// AddInputAddress registers an address whose unspent outputs may be drawn
// from by coin selection.
func (b *Builder) AddInputAddress(addr address.Address) error {
	if err := b.ensureMutable("AddInputAddress"); err != nil {
		return err
	}
	b.inputAddresses = append(b.inputAddresses, addr)
	return nil
}

// ExcludeInput removes an output reference from selection consideration.
func (b *Builder) ExcludeInput(input ledger.TransactionInput) error {
	if err := b.ensureMutable("ExcludeInput"); err != nil {
		return err
	}
	b.excluded[input] = struct{}{}
	return nil
}

// AddOutput appends a payment. Repeated calls compose.
func (b *Builder) AddOutput(output ledger.TransactionOutput) error {
	if err := b.ensureMutable("AddOutput"); err != nil {
		return err
	}
	if err := output.Validate(); err != nil {
		return err
	}
	b.outputs = append(b.outputs, output)
	return nil
}

// AddScriptInput spends a script-locked output. The datum must be supplied
// when the output commits to a datum hash, and must match it. The redeemer
// budget may be nil, in which case it is estimated during Build.
func (b *Builder) AddScriptInput(utxo ledger.UTxO, script plutus.Script, datum *plutus.Data, redeemer plutus.Data, units *plutus.ExecutionUnits) error {
	if err := b.ensureMutable("AddScriptInput"); err != nil {
		return err
	}
	if !utxo.Output.Address.HasScriptPayment() {
		return &StateError{Op: "AddScriptInput", Reason: "output is not script-locked"}
	}
	if utxo.Output.DatumHash != nil {
		if datum == nil {
			return &StateError{Op: "AddScriptInput", Reason: "output commits to a datum hash but no datum supplied"}
		}
		hash, err := plutus.DataHash(*datum)
		if err != nil {
			return err
		}
		if ledger.DatumHash(hash) != *utxo.Output.DatumHash {
			return &StateError{Op: "AddScriptInput", Reason: "datum does not match the output's datum hash"}
		}
	}
	b.scriptInputs = append(b.scriptInputs, scriptInput{
		utxo:     utxo,
		plutus:   script,
		datum:    datum,
		redeemer: &redeemerDraft{data: redeemer, units: units},
	})
	b.inputs = append(b.inputs, utxo)
	return nil
}

// AddNativeScriptInput spends an output locked by a native script.
func (b *Builder) AddNativeScriptInput(utxo ledger.UTxO, script ledger.NativeScript) error {
	if err := b.ensureMutable("AddNativeScriptInput"); err != nil {
		return err
	}
	b.scriptInputs = append(b.scriptInputs, scriptInput{utxo: utxo, native: script})
	b.inputs = append(b.inputs, utxo)
	return nil
}

// SetMint declares the assets minted (positive) or burned (negative).
func (b *Builder) SetMint(mint ledger.MultiAsset) error {
	if err := b.ensureMutable("SetMint"); err != nil {
		return err
	}
	b.mint = mint
	return nil
}

// AddMintingScript attaches the script authorizing a minted policy. For a
// Plutus policy the redeemer is mandatory; units may be nil for estimation.
func (b *Builder) AddMintingScript(script plutus.Script, redeemer plutus.Data, units *plutus.ExecutionUnits) error {
	if err := b.ensureMutable("AddMintingScript"); err != nil {
		return err
	}
	hash, err := plutus.ScriptHash(script)
	if err != nil {
		return err
	}
	b.mintingScripts = append(b.mintingScripts, mintingScript{
		policy:   ledger.PolicyID(hash),
		plutus:   script,
		redeemer: &redeemerDraft{data: redeemer, units: units},
	})
	return nil
}

// AddNativeMintingScript attaches a native script authorizing a policy.
func (b *Builder) AddNativeMintingScript(script ledger.NativeScript) error {
	if err := b.ensureMutable("AddNativeMintingScript"); err != nil {
		return err
	}
	hash, err := ledger.NativeScriptHash(script)
	if err != nil {
		return err
	}
	b.mintingScripts = append(b.mintingScripts, mintingScript{
		policy: ledger.PolicyID(hash),
		native: script,
	})
	return nil
}

// AddCertificate appends a certificate.
func (b *Builder) AddCertificate(cert ledger.Certificate) error {
	if err := b.ensureMutable("AddCertificate"); err != nil {
		return err
	}
	b.certificates = append(b.certificates, cert)
	return nil
}

// SetWithdrawals declares reward withdrawals, keyed by reward account.
func (b *Builder) SetWithdrawals(withdrawals map[cbor.ByteString]int64) error {
	if err := b.ensureMutable("SetWithdrawals"); err != nil {
		return err
	}
	b.withdrawals = withdrawals
	return nil
}

// SetTTL sets the last slot the transaction is valid in.
func (b *Builder) SetTTL(slot uint64) error {
	if err := b.ensureMutable("SetTTL"); err != nil {
		return err
	}
	b.ttl = slot
	return nil
}

// SetValidityStart sets the first slot the transaction is valid in.
func (b *Builder) SetValidityStart(slot uint64) error {
	if err := b.ensureMutable("SetValidityStart"); err != nil {
		return err
	}
	b.validityStart = slot
	return nil
}

// SetAuxiliaryData attaches metadata; its hash is placed in the body.
func (b *Builder) SetAuxiliaryData(data ledger.AuxiliaryData) error {
	if err := b.ensureMutable("SetAuxiliaryData"); err != nil {
		return err
	}
	b.auxiliaryData = data
	return nil
}

// SetRequiredSigners lists key hashes that must witness the transaction
// beyond those implied by its inputs.
func (b *Builder) SetRequiredSigners(signers []ledger.AddrKeyHash) error {
	if err := b.ensureMutable("SetRequiredSigners"); err != nil {
		return err
	}
	b.requiredSigners = signers
	return nil
}

// AddCollateral supplies a collateral input for script execution.
func (b *Builder) AddCollateral(utxo ledger.UTxO) error {
	if err := b.ensureMutable("AddCollateral"); err != nil {
		return err
	}
	b.collateral = append(b.collateral, utxo)
	return nil
}

// SetFeeBuffer reserves extra fee headroom on top of the computed fee.
func (b *Builder) SetFeeBuffer(buffer int64) error {
	if err := b.ensureMutable("SetFeeBuffer"); err != nil {
		return err
	}
	b.feeBuffer = buffer
	return nil
}
