// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries an explicit exit code out of run(). Code 0 with a
// nil Err is a clean exit requested from deep inside the program (an
// operator interrupt during a session, for example).
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exit wraps err with an explicit exit code.
func Exit(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// Code returns the exit status main should use for err: 0 for nil, the
// carried code for an *ExitError, and 1 otherwise.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Report writes "error: err" to w when err warrants a message and
// returns the exit code for it.
func Report(w io.Writer, err error) int {
	code := Code(err)
	var exitErr *ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.Err == nil) {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return code
}

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors that occur before the logger is configured.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Main runs run and exits the process with the code its error maps to.
func Main(run func() error) {
	os.Exit(Report(os.Stderr, run()))
}
