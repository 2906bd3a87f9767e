// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tether/lib/testutil"
)

func TestConsoleSendsQuitTokenOnEOF(t *testing.T) {
	output := &syncBuffer{}
	console := &Console{Input: strings.NewReader("ls\n"), Output: output, QuitLinger: 5 * time.Second}
	local, remote := tcpPair(t)
	session := &Session{Transport: local, Console: console, ID: 1, Logger: testLogger()}
	results := make(chan SessionResult, 1)
	go func() { results <- session.Run(context.Background()) }()

	// The write side is half-closed after the token, so reading to EOF
	// terminates while the session is still up.
	if got := readAll(t, remote, 5*time.Second); got != "ls\n:leave:" {
		t.Fatalf("remote received %q, want %q", got, "ls\n:leave:")
	}

	if _, err := remote.Write([]byte("late-output")); err != nil {
		t.Fatalf("write after half-close: %v", err)
	}
	testutil.RequireEventually(t, func() bool {
		return strings.Contains(output.String(), "late-output")
	}, 5*time.Second, "output after quit token")

	remote.Close()
	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for session end")
	if result.Reason != EndLocalClosed {
		t.Errorf("Reason = %s, want %s", result.Reason, EndLocalClosed)
	}
	if result.BytesToRemote != int64(len("ls\n:leave:")) {
		t.Errorf("BytesToRemote = %d, want %d", result.BytesToRemote, len("ls\n:leave:"))
	}
}

func TestConsoleLingerExpires(t *testing.T) {
	console := &Console{Input: strings.NewReader(""), Output: &syncBuffer{}, QuitLinger: 50 * time.Millisecond}
	local, remote := tcpPair(t)
	session := &Session{Transport: local, Console: console, ID: 1, Logger: testLogger()}
	results := make(chan SessionResult, 1)
	go func() { results <- session.Run(context.Background()) }()

	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for linger to expire")
	if result.Reason != EndLocalClosed {
		t.Errorf("Reason = %s, want %s", result.Reason, EndLocalClosed)
	}
	if got := readAll(t, remote, 5*time.Second); got != ":leave:" {
		t.Errorf("remote received %q, want %q", got, ":leave:")
	}
}

func TestConsoleRemoteClosed(t *testing.T) {
	output := &syncBuffer{}
	console := &Console{Input: blockingInput(t), Output: output}
	local, remote := tcpPair(t)
	session := &Session{Transport: local, Console: console, ID: 1, Logger: testLogger()}
	results := make(chan SessionResult, 1)
	go func() { results <- session.Run(context.Background()) }()

	remote.Write([]byte("$ whoami\nroot\n"))
	remote.Close()
	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for session end")
	if result.Reason != EndRemoteClosed {
		t.Errorf("Reason = %s, want %s", result.Reason, EndRemoteClosed)
	}
	if got := output.String(); got != "$ whoami\nroot\n" {
		t.Errorf("console output = %q", got)
	}
}

func TestConsoleEOFIsStickyAcrossSessions(t *testing.T) {
	console := &Console{Input: strings.NewReader("first\n"), Output: &syncBuffer{}, QuitLinger: 50 * time.Millisecond}

	for i, want := range []string{"first\n:leave:", ":leave:"} {
		local, remote := tcpPair(t)
		session := &Session{Transport: local, Console: console, ID: uint64(i + 1), Logger: testLogger()}
		results := make(chan SessionResult, 1)
		go func() { results <- session.Run(context.Background()) }()

		if got := readAll(t, remote, 5*time.Second); got != want {
			t.Errorf("session %d: remote received %q, want %q", i+1, got, want)
		}
		remote.Close()
		testutil.RequireReceive(t, results, 5*time.Second, "waiting for session end")
	}
}

func TestConsoleTerminalFD(t *testing.T) {
	console := &Console{Input: strings.NewReader(""), Output: &syncBuffer{}}
	if _, ok := console.TerminalFD(); ok {
		t.Error("TerminalFD reported a terminal for a strings.Reader")
	}
}
