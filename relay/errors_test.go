// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSpawnErrorUnwrapsPTYUnavailable(t *testing.T) {
	err := error(&SpawnError{Command: []string{"/bin/bash", "-i"}, Mode: ModePTY, Err: ErrPTYUnavailable})
	if !errors.Is(err, ErrPTYUnavailable) {
		t.Fatalf("errors.Is(%v, ErrPTYUnavailable) = false", err)
	}
	if !strings.Contains(err.Error(), `"/bin/bash -i"`) || !strings.Contains(err.Error(), "pty mode") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestConnectErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ConnectError{Address: "10.0.0.1:4546", Attempt: 3, Delay: 8 * time.Second, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ConnectError does not unwrap to its cause")
	}
	want := "connect 10.0.0.1:4546 (attempt 3): connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAbortErrorUnwrapsCancellation(t *testing.T) {
	err := error(&AbortError{Connecting: true, Err: context.Canceled})
	if !errors.Is(err, context.Canceled) {
		t.Fatal("AbortError does not unwrap to context.Canceled")
	}
	var abort *AbortError
	if !errors.As(err, &abort) || !abort.Connecting {
		t.Fatalf("errors.As = %v, Connecting = %v", abort, abort != nil && abort.Connecting)
	}
	if !strings.Contains(err.Error(), "while connecting") {
		t.Errorf("unexpected message: %s", err)
	}
}
