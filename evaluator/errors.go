package evaluator

import "fmt"

// Budget is the execution budget reported alongside a failure.
type Budget struct {
	Mem uint64 `cbor:"mem"`
	CPU uint64 `cbor:"cpu"`
}

// EvalError is the structured failure payload produced by the evaluation
// runtime.
type EvalError struct {
	ErrorType  string   `cbor:"error_type"`
	Budget     Budget   `cbor:"budget"`
	DebugTrace []string `cbor:"debug_trace"`
}

type EvaluationError struct {
	EvalError EvalError
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("Evaluation failed: %s", e.EvalError.ErrorType)
}
