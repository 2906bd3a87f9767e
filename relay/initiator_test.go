// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tether/lib/clock"
	"github.com/bureau-foundation/tether/lib/testutil"
)

func newTestInitiator(address, shell string, mode Mode, results chan<- SessionResult) *Initiator {
	return &Initiator{
		Connector: &Connector{
			Address: address,
			Backoff: NewBackoff(10*time.Millisecond, 50*time.Millisecond),
			Logger:  testLogger(),
		},
		Shell:          shell,
		Mode:           mode,
		GracePeriod:    200 * time.Millisecond,
		ReconnectPause: 20 * time.Millisecond,
		Logger:         testLogger(),
		OnSession: func(result SessionResult) {
			select {
			case results <- result:
			default:
			}
		},
	}
}

func runEndToEnd(t *testing.T, mode Mode) {
	requireCommand(t, "sh")
	inputReader, inputWriter := io.Pipe()
	t.Cleanup(func() { inputWriter.Close() })
	output := &syncBuffer{}
	listener := startListener(t, &Console{Input: inputReader, Output: output, QuitLinger: time.Second})

	results := make(chan SessionResult, 8)
	initiator := newTestInitiator(listener.Addr().String(), "/bin/sh", mode, results)
	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan error, 1)
	go func() { returned <- initiator.Run(ctx) }()

	if _, err := inputWriter.Write([]byte("echo hi\n")); err != nil {
		t.Fatalf("console input: %v", err)
	}
	testutil.RequireEventually(t, func() bool {
		return strings.Contains(output.String(), "hi\n") || strings.Contains(output.String(), "hi\r\n")
	}, 5*time.Second, "waiting for shell output on console")

	// Local EOF on the console sends the quit token.
	inputWriter.Close()
	first := testutil.RequireReceive(t, results, 10*time.Second, "first session result")
	if first.Reason != EndQuitToken {
		t.Fatalf("first session Reason = %s, want %s", first.Reason, EndQuitToken)
	}

	// The initiator reconnects; the console's input is still at EOF, so
	// the new session is told to quit as well.
	second := testutil.RequireReceive(t, results, 10*time.Second, "second session result")
	if second.Reason != EndQuitToken {
		t.Errorf("second session Reason = %s, want %s", second.Reason, EndQuitToken)
	}

	cancel()
	err := testutil.RequireReceive(t, returned, 10*time.Second, "waiting for Run to return")
	var abort *AbortError
	if !errors.As(err, &abort) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want *AbortError wrapping context.Canceled", err)
	}
}

func TestEndToEndPipe(t *testing.T) {
	runEndToEnd(t, ModePipe)
}

func TestEndToEndPTY(t *testing.T) {
	requirePTY(t)
	runEndToEnd(t, ModePTY)
}

func TestInitiatorSpawnFailureIsTerminal(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		connection, err := listener.Accept()
		if err == nil {
			accepted <- connection
		}
	}()

	initiator := newTestInitiator(listener.Addr().String(), "/nonexistent/tether-test-shell", ModePipe, make(chan SessionResult, 1))
	err = initiator.Run(context.Background())
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Run = %v, want *SpawnError", err)
	}

	connection := testutil.RequireReceive(t, accepted, 5*time.Second, "accepted connection")
	defer connection.Close()
	if got := readAll(t, connection, 5*time.Second); got != "" {
		t.Errorf("received %q from a failed spawn, want nothing", got)
	}
}

func TestInitiatorCancelWhileConnecting(t *testing.T) {
	fakeClock := clock.Fake(epoch)
	initiator := &Initiator{
		Connector: &Connector{
			Address: "192.0.2.1:4546",
			Backoff: NewBackoff(2*time.Second, 15*time.Second),
			Dialer:  &scriptedDialer{clock: fakeClock, failures: 1 << 30},
			Clock:   fakeClock,
			Logger:  testLogger(),
		},
		Shell:  "/bin/sh",
		Mode:   ModePipe,
		Clock:  fakeClock,
		Logger: testLogger(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan error, 1)
	go func() { returned <- initiator.Run(ctx) }()

	fakeClock.WaitForTimers(1)
	cancel()
	err := testutil.RequireReceive(t, returned, 5*time.Second, "waiting for Run to return")
	var abort *AbortError
	if !errors.As(err, &abort) || !abort.Connecting {
		t.Fatalf("Run = %v, want *AbortError with Connecting set", err)
	}
}
