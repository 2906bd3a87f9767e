// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds socket helpers shared by the relay supervisors:
// classification of normal teardown errors and best-effort TCP tuning.
package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal end of stream
// rather than a fault worth logging: EOF, a closed connection or pipe,
// a broken pipe, a connection reset, or EIO from a PTY master whose
// subordinate side has closed.
//
// A relay that full-closes one side while the other is mid-read or
// mid-write produces exactly these errors on the surviving side.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET || errno == syscall.EIO
	}
	return false
}
