package evaluator

// Config holds configuration parameters for the Evaluator.
type Config struct {
	WasmFile     string // Path to the phase-two evaluation WASM
	CostModels   []byte // Serialized cost models
	MaxTxExSteps uint64 // Maximum transaction execution steps
	MaxTxExMem   uint64 // Maximum transaction execution memory
	ZeroTime     uint64 // Posix time of slot zero, milliseconds
	ZeroSlot     uint64 // Slot number at ZeroTime
	SlotLength   uint64 // Slot length, milliseconds
}
