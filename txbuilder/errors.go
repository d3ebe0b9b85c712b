package txbuilder

import "fmt"

// StateError reports an operation invalid for the builder's current state,
// such as mutating a builder that has already produced a transaction.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid builder state for %s: %s", e.Op, e.Reason)
}

// BuildError reports that construction failed structurally: the fee
// fixpoint did not converge within the iteration cap, or the finished
// transaction violates a ledger limit.
type BuildError struct {
	Iterations int
	Reason     string
}

func (e *BuildError) Error() string {
	if e.Iterations > 0 {
		return fmt.Sprintf("build failed after %d iterations: %s", e.Iterations, e.Reason)
	}
	return fmt.Sprintf("build failed: %s", e.Reason)
}
