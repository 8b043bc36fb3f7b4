package models

import "fmt"

// Process exit codes. These are part of the CLI contract and consumed by
// external schedulers and monitoring.
const (
	ExitSuccess      = 0
	ExitFailure      = 1  // one or more targets failed, or restore failed
	ExitBadTarget    = 2  // a configured source directory is invalid
	ExitLockHeld     = 5  // another run holds the instance lock
	ExitConnectivity = 6  // SSH preflight failed
	ExitDiskSpace    = 7  // insufficient local disk space
	ExitPrerequisite = 10 // required external command missing
	ExitWarning      = 24 // partial transfer or vanished source files
)

// CodedError carries the process exit code alongside the underlying error.
type CodedError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *CodedError) Unwrap() error { return e.Err }

// NewCodedError wraps err with an exit code.
func NewCodedError(code int, err error) *CodedError {
	return &CodedError{Code: code, Err: err}
}

// CodedErrorf builds a CodedError from a format string.
func CodedErrorf(code int, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Err: fmt.Errorf(format, args...)}
}
