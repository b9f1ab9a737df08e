package engine

import (
	"fmt"
	"strings"
)

// GenerationError wraps a failed draft, rewrite, or tag generation call.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s stage: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError carries the specific structural rules the normalized note
// text violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "note text failed validation: " + strings.Join(e.Violations, "; ")
}

// SubmissionError wraps a transport, auth, or HTTP failure from the
// submission endpoint.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("note submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConfigurationError marks a writer whose thresholds are invalid; the writer
// is skipped for the whole run.
type ConfigurationError struct {
	Writer string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("writer %q misconfigured: %s", e.Writer, e.Reason)
}
