package agent

import "fmt"

// ValidationError signals a caller-side problem: an input that fails its
// schema's invariants, or a template that cannot be located or parsed.
type ValidationError struct {
	Agent string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("agent %s: validation failed: %v", e.Agent, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProcessingError wraps any gateway, extraction or parse failure with the
// original cause attached.
type ProcessingError struct {
	Agent string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("agent %s: processing failed: %v", e.Agent, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
