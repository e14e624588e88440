// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code. When Err is nil the command is
// expected to have already written its own output and main exits
// silently; otherwise main prints Err before exiting.
//
// "fragport resolve" uses this to exit 2 when a fragment has not been
// produced, so build scripts can tell "not yet" apart from a failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the exit code. main checks for this interface on
// returned errors.
func (e *ExitError) ExitCode() int {
	return e.Code
}
