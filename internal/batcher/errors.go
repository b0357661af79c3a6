package batcher

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned when adding to a session after its terminal action
	ErrSessionClosed = errors.New("autobatch session is closed")
	// ErrInvalidBatchSize is returned for a negative max batch size
	ErrInvalidBatchSize = errors.New("max batch size must not be negative")
)

// NotBatchableError is returned when Add is given something that is not a registered function handle
type NotBatchableError struct {
	Function string
	Reason   string
}

func (e *NotBatchableError) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("not batchable: %s", e.Reason)
	}
	return fmt.Sprintf("function %s is not batchable: %s", e.Function, e.Reason)
}

// InvalidConfigError is returned when an option value cannot be part of a grouping key
type InvalidConfigError struct {
	Option string
	Value  any
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: option %q has non-scalar value of type %T", e.Option, e.Value)
}

// SubmissionError is returned when the dispatcher fails to submit a job.
// Jobs submitted before the failure are listed in Submitted and are not rolled back.
type SubmissionError struct {
	Submitted []JobID
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed after %d job(s): %v", len(e.Submitted), e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
