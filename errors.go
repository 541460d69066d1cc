package vci

import (
	"errors"
	"fmt"
)

// RuntimeError marks failures of the tool itself rather than of the jobs it
// ran: bad configuration, an unreadable workflow file, a missing work
// directory. These map to exit code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError reports whether err is or wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// JobFailureError means the run completed but one or more matrix jobs did
// not pass. It maps to exit code 1, keeping job outcomes distinguishable
// from tool breakage in CI pipelines.
type JobFailureError struct {
	Message string
}

func (e *JobFailureError) Error() string {
	return fmt.Sprintf("job failure: %s", e.Message)
}

func NewJobFailureError(message string) *JobFailureError {
	return &JobFailureError{Message: message}
}

// IsJobFailureError reports whether err is or wraps a JobFailureError.
func IsJobFailureError(err error) bool {
	var jobErr *JobFailureError
	return err != nil && errors.As(err, &jobErr)
}
