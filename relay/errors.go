// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPTYUnavailable is wrapped by a SpawnError when no pseudo-terminal
// could be allocated or the platform has none. Callers fall back to
// pipe mode on it.
var ErrPTYUnavailable = errors.New("pseudo-terminal unavailable")

// ConnectError describes one failed dial. It is always transient: the
// Connector logs it and retries after Delay.
type ConnectError struct {
	Address string
	Attempt int
	Delay   time.Duration
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s (attempt %d): %v", e.Address, e.Attempt, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SpawnError reports that the shell could not be started. It ends the
// session and is not retried by the session layer.
type SpawnError struct {
	Command []string
	Mode    Mode
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q in %s mode: %v", strings.Join(e.Command, " "), e.Mode, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// AbortError is returned by Initiator.Run when its context is
// cancelled. Connecting reports whether no connection had been
// established yet, which decides the binary's exit status.
type AbortError struct {
	Connecting bool
	Err        error
}

func (e *AbortError) Error() string {
	if e.Connecting {
		return fmt.Sprintf("aborted while connecting: %v", e.Err)
	}
	return fmt.Sprintf("aborted: %v", e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }
