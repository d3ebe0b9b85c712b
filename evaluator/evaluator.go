// Package evaluator measures the execution budget of Plutus scripts by
// running a phase-two evaluation WASM under wazero.
package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mgpai22/argentum/cbor"
	"github.com/mgpai22/argentum/ledger"
	"github.com/mgpai22/argentum/plutus"
)

type Evaluator struct {
	runtime           wazero.Runtime
	module            api.Module
	evalPhaseTwoRaw   api.Function
	alloc             api.Function
	dealloc           api.Function
	utxoToInputBytes  api.Function
	utxoToOutputBytes api.Function
	config            Config
}

func NewEvaluator(ctx context.Context, config Config) (*Evaluator, error) {
	if config.WasmFile == "" {
		return nil, errors.New("evaluator: WasmFile is required")
	}
	runtime := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, err
	}

	wasmBytes, err := os.ReadFile(config.WasmFile)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to read WASM file: %w", err)
	}

	modConfig := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)

	module, err := runtime.InstantiateWithConfig(ctx, wasmBytes, modConfig)
	if err != nil {
		runtime.Close(ctx)
		return nil, err
	}

	evaluator := &Evaluator{
		runtime:           runtime,
		module:            module,
		evalPhaseTwoRaw:   module.ExportedFunction("eval_phase_two_raw"),
		alloc:             module.ExportedFunction("alloc"),
		dealloc:           module.ExportedFunction("dealloc"),
		utxoToInputBytes:  module.ExportedFunction("utxo_to_input_bytes"),
		utxoToOutputBytes: module.ExportedFunction("utxo_to_output_bytes"),
		config:            config,
	}

	return evaluator, nil
}

// Close terminates the WASM runtime and releases resources.
func (e *Evaluator) Close(ctx context.Context) {
	e.module.Close(ctx)
	e.runtime.Close(ctx)
}

// Evaluate measures every redeemer of the encoded transaction against the
// resolved inputs. The returned redeemers carry measured budgets.
func (e *Evaluator) Evaluate(ctx context.Context, txBytes []byte, utxos []ledger.UTxO) ([]plutus.Redeemer, error) {
	tx, err := TxFromBytes(txBytes)
	if err != nil {
		return nil, err
	}

	utxoMap := make(map[ledger.TransactionInput]ledger.UTxO)
	for _, utxo := range utxos {
		utxoMap[utxo.Input] = utxo
	}

	var inputBytes [][]byte
	var outputBytes [][]byte

	for _, input := range tx.Body.Inputs {
		utxo, exists := utxoMap[input]
		if !exists {
			return nil, fmt.Errorf("missing UTxO for input: %s", input)
		}

		utxoCbor, err := cbor.Marshal(wireUTxO(utxo))
		if err != nil {
			return nil, err
		}

		utxoPtr, utxoLen := e.writeToMemory(ctx, utxoCbor)
		defer e.deallocMemory(ctx, utxoPtr, utxoLen)

		inputUtxoBytes, err := e.callFunction(ctx, e.utxoToInputBytes, utxoPtr, utxoLen)
		if err != nil {
			return nil, err
		}
		inputBytes = append(inputBytes, inputUtxoBytes)

		outputUtxoBytes, err := e.callFunction(ctx, e.utxoToOutputBytes, utxoPtr, utxoLen)
		if err != nil {
			return nil, err
		}
		outputBytes = append(outputBytes, outputUtxoBytes)
	}

	serializedUtxos := serializeUTxOs(inputBytes, outputBytes)

	txPtr, txLen := e.writeToMemory(ctx, txBytes)
	utxosPtr, utxosLen := e.writeToMemory(ctx, serializedUtxos)
	costModelsPtr, costModelsLen := e.writeToMemory(ctx, e.config.CostModels)

	defer e.deallocMemory(ctx, txPtr, txLen)
	defer e.deallocMemory(ctx, utxosPtr, utxosLen)
	defer e.deallocMemory(ctx, costModelsPtr, costModelsLen)

	results, err := e.evalPhaseTwoRaw.Call(ctx,
		txPtr, txLen,
		utxosPtr, utxosLen,
		costModelsPtr, costModelsLen,
		e.config.MaxTxExSteps, e.config.MaxTxExMem,
		e.config.ZeroTime, e.config.ZeroSlot, e.config.SlotLength,
	)
	if err != nil {
		return nil, err
	}

	resultPtr := uint32(results[0] >> 32)
	resultLen := uint32(results[0])

	resultBytes, ok := e.module.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, errors.New("failed to read result memory")
	}

	defer e.deallocMemory(ctx, uint64(resultPtr), uint64(resultLen))

	if len(resultBytes) == 0 {
		return nil, errors.New("empty result from WASM evaluation")
	}

	if resultBytes[0] == 0 {
		var cborArray [][]byte
		if err := cbor.Unmarshal(bytes.Clone(resultBytes[1:]), &cborArray); err != nil {
			return nil, err
		}
		redeemers := make([]plutus.Redeemer, len(cborArray))
		for i, item := range cborArray {
			if err := cbor.Unmarshal(item, &redeemers[i]); err != nil {
				return nil, err
			}
		}
		return redeemers, nil
	}

	var evalError EvalError
	if err := cbor.Unmarshal(bytes.Clone(resultBytes[1:]), &evalError); err != nil {
		return nil, err
	}
	return nil, &EvaluationError{EvalError: evalError}
}

// Budgets runs Evaluate and keys the measured units by redeemer, the shape
// a chain context reports.
func (e *Evaluator) Budgets(ctx context.Context, tx *ledger.Transaction, utxos []ledger.UTxO) (map[plutus.RedeemerKey]plutus.ExecutionUnits, error) {
	txBytes, err := tx.Bytes()
	if err != nil {
		return nil, err
	}
	redeemers, err := e.Evaluate(ctx, txBytes, utxos)
	if err != nil {
		return nil, err
	}
	out := map[plutus.RedeemerKey]plutus.ExecutionUnits{}
	for _, r := range redeemers {
		out[plutus.RedeemerKey{Tag: r.Tag, Index: r.Index}] = r.ExUnits
	}
	return out, nil
}

// writeToMemory allocates memory in WASM and writes data to it.
func (e *Evaluator) writeToMemory(ctx context.Context, data []byte) (uint64, uint64) {
	results, err := e.alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		log.Fatalf("Failed to allocate memory: %v", err)
	}
	ptr := results[0]
	if !e.module.Memory().Write(uint32(ptr), data) {
		log.Fatalf("Failed to write data to WASM memory")
	}
	return ptr, uint64(len(data))
}

// deallocMemory deallocates memory in WASM.
func (e *Evaluator) deallocMemory(ctx context.Context, ptr, size uint64) {
	_, err := e.dealloc.Call(ctx, ptr, size)
	if err != nil {
		log.Printf("Failed to deallocate memory: %v", err)
	}
}

// callFunction invokes a WASM function and retrieves the result bytes.
func (e *Evaluator) callFunction(ctx context.Context, fn api.Function, args ...uint64) ([]byte, error) {
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, err
	}
	if len(results) < 1 {
		return nil, errors.New("no results from function call")
	}

	resultPtr := uint32(results[0] >> 32)
	resultLen := uint32(results[0])

	resultBytes, ok := e.module.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, errors.New("failed to read function result memory")
	}

	// Copy before deallocation; Read aliases module memory.
	resultCopy := make([]byte, len(resultBytes))
	copy(resultCopy, resultBytes)

	e.deallocMemory(ctx, uint64(resultPtr), uint64(resultLen))

	return resultCopy, nil
}
