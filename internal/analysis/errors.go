package analysis

import "fmt"

// ComputationError wraps an unexpected failure during pattern extraction
// or scoring. It is surfaced to the caller; the cold-start default
// analysis never substitutes for it.
type ComputationError struct {
	Stage string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("analysis: %s: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
