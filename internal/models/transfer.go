package models

import "time"

// TransferResult holds the raw outcome of one rsync invocation. ExitCode is
// propagated unchanged from the subprocess; classification is the caller's
// responsibility.
type TransferResult struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
	Err      error // process start failure or non-zero exit
}
