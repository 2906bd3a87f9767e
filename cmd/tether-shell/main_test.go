// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bureau-foundation/tether/lib/process"
	"github.com/bureau-foundation/tether/relay"
)

func TestExitStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"interrupt while connecting", &relay.AbortError{Connecting: true, Err: context.Canceled}, 1},
		{"interrupt during session", &relay.AbortError{Err: context.Canceled}, 0},
		{"spawn failure", &relay.SpawnError{Command: []string{"/nope"}, Mode: relay.ModePipe, Err: errors.New("not found")}, 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := process.Code(exitStatus(test.err, logger)); got != test.want {
				t.Errorf("exit code = %d, want %d", got, test.want)
			}
		})
	}
}

func TestInterruptWhileConnectingIsSilent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var stderr testWriter
	process.Report(&stderr, exitStatus(&relay.AbortError{Connecting: true, Err: context.Canceled}, logger))
	if stderr.n != 0 {
		t.Errorf("interrupt while connecting printed %d bytes of error output", stderr.n)
	}
}

type testWriter struct{ n int }

func (w *testWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}
